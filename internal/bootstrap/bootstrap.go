// Package bootstrap wires the process together: it opens the
// Postgres/Redis/RabbitMQ connections, assembles the store
// repositories and the command/query flow-orchestration services, and
// composes them into the fiber HTTP server and the background
// token-expiry sweeper, following the teacher's setup-function style
// in its wire-set rather than wire's generated providers — this
// service does its dependency injection by hand.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"placedir/internal/adapters/http/in"
	"placedir/internal/cache"
	"placedir/internal/notify"
	"placedir/internal/search"
	"placedir/internal/services/command"
	"placedir/internal/services/query"
	"placedir/internal/store/postgres"
	"placedir/pkg"
	"placedir/pkg/config"
	"placedir/pkg/mlog"
	"placedir/pkg/mpostgres"
	"placedir/pkg/mrabbitmq"
	"placedir/pkg/mredis"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

// Connections holds the long-lived external connections the rest of
// bootstrap assembles repositories and services on top of.
type Connections struct {
	Postgres *mpostgres.PostgresConnection
	Redis    *mredis.RedisConnection
	RabbitMQ *mrabbitmq.RabbitMQConnection
}

// setupPostgreSQLConnection opens the primary/replica pool and runs
// pending migrations, mirroring the teacher's wire-set provider of the
// same name.
func setupPostgreSQLConnection(cfg *config.Config, logger mlog.Logger) (*mpostgres.PostgresConnection, error) {
	pc := &mpostgres.PostgresConnection{
		ConnectionStringPrimary: cfg.PostgresPrimaryDSN(),
		ConnectionStringReplica: cfg.PostgresReplicaDSN(),
		PrimaryDBName:           cfg.PrimaryDBName,
		ReplicaDBName:           cfg.ReplicaDBName,
	}

	if err := pc.Connect(); err != nil {
		return nil, fmt.Errorf("bootstrap: postgres connect: %w", err)
	}

	return pc, nil
}

func setupRedisConnection(ctx context.Context, cfg *config.Config, logger mlog.Logger) (*mredis.RedisConnection, error) {
	rc := &mredis.RedisConnection{
		ConnectionStringSource: cfg.RedisDSN(),
		Logger:                 logger,
	}

	if err := rc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: redis connect: %w", err)
	}

	return rc, nil
}

func setupRabbitMQConnection(ctx context.Context, cfg *config.Config, logger mlog.Logger) (*mrabbitmq.RabbitMQConnection, error) {
	rc := &mrabbitmq.RabbitMQConnection{
		ConnectionStringSource: cfg.RabbitMQDSN(),
		Logger:                 logger,
	}

	if err := rc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: rabbitmq connect: %w", err)
	}

	return rc, nil
}

// NewConnections opens every external connection the service depends
// on. The reindex-all CLI subcommand also goes through this, since the
// store always needs Postgres and the flows always need the rest; the
// migrate subcommand opens only Postgres, via setupPostgreSQLConnection.
func NewConnections(ctx context.Context, cfg *config.Config, logger mlog.Logger) (*Connections, error) {
	pg, err := setupPostgreSQLConnection(cfg, logger)
	if err != nil {
		return nil, err
	}

	redisConn, err := setupRedisConnection(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	rabbit, err := setupRabbitMQConnection(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Connections{Postgres: pg, Redis: redisConn, RabbitMQ: rabbit}, nil
}

// RunMigrations opens the primary Postgres connection, which runs
// pending migrations as part of connecting, and reports whether that
// succeeded. It is the flow behind the CLI's migrate subcommand.
func RunMigrations(cfg *config.Config, logger mlog.Logger) error {
	_, err := setupPostgreSQLConnection(cfg, logger)
	return err
}

// Services composes the store, search index and notifier into the
// command/query flow orchestration layer shared by the HTTP server,
// the CLI's reindex-all subcommand, and the background sweeper.
type Services struct {
	DB      *postgres.DB
	Command *command.Service
	Query   *query.Service
	Users   *postgres.UserRepository
	Index   *search.Index
}

// NewServices builds the repository set and the command/query services
// on top of an already-open set of connections.
func NewServices(ctx context.Context, conns *Connections, cfg *config.Config, logger mlog.Logger) (*Services, error) {
	pool, err := conns.Postgres.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: postgres pool: %w", err)
	}

	db := postgres.NewDB(pool)

	places := postgres.NewPlaceRepository(db)
	ratings := postgres.NewRatingRepository(db)
	comments := postgres.NewCommentRepository(db)
	users := postgres.NewUserRepository(db)
	orgs := postgres.NewOrganizationRepository(db)
	events := postgres.NewEventRepository(db)
	subscriptions := postgres.NewSubscriptionRepository(db)
	categories := postgres.NewCategoryRepository(db)

	index, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open search index: %w", err)
	}

	publisher := notify.NewPublisher(conns.RabbitMQ, logger)
	placesCache := cache.New(conns.Redis, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)

	cmdSvc := &command.Service{
		DB:            db,
		Places:        places,
		Ratings:       ratings,
		Comments:      comments,
		Users:         users,
		Orgs:          orgs,
		Events:        events,
		Subscriptions: subscriptions,
		Categories:    categories,
		Index:         index,
		Cache:         placesCache,
		Notify:        publisher,
		Logger:        logger,
	}

	qrySvc := &query.Service{
		Places:   places,
		Ratings:  ratings,
		Comments: comments,
		Orgs:     orgs,
		Events:   events,
		Index:    index,
		Cache:    placesCache,
		Logger:   logger,
	}

	return &Services{DB: db, Command: cmdSvc, Query: qrySvc, Users: users, Index: index}, nil
}

// Server implements common.App, running the fiber HTTP server. It is
// grounded on the teacher's service.Server/NewServer/Run(l
// *common.Launcher) error shape.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// NewServer builds the fiber app from svc and wraps it as a runnable Server.
func NewServer(cfg *config.Config, svc *Services, tokens *httpx.TokenIssuer, logger mlog.Logger) *Server {
	app := in.NewRouter(svc.Command, svc.Query, tokens, logger,
		cfg.PublicBaseURL+"/v1/users/confirm-email?token=",
		cfg.PublicBaseURL+"/v1/users/reset-password?token=")

	return &Server{app: app, serverAddress: cfg.ServerAddress, logger: logger}
}

// Run listens on the configured address until the process is terminated.
func (s *Server) Run(l *common.Launcher) error {
	if err := s.app.Listen(s.serverAddress); err != nil {
		return fmt.Errorf("bootstrap: server: %w", err)
	}

	return nil
}

// Sweeper implements common.App, periodically discarding expired user
// tokens. It is the background-maintenance task named in the
// concurrency model: a ticker-driven goroutine with no shared state
// beyond the store.
type Sweeper struct {
	Users    *postgres.UserRepository
	Interval time.Duration
	Logger   mlog.Logger
}

// Run ticks every s.Interval, discarding user tokens that expired
// before the tick time, until the process is terminated.
func (s *Sweeper) Run(l *common.Launcher) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for range ticker.C {
		n, err := s.Users.DiscardExpired(context.Background(), time.Now().Unix())
		if err != nil {
			s.Logger.Errorf("bootstrap: sweeper: discard expired tokens: %v", err)
			continue
		}

		if n > 0 {
			s.Logger.Infof("bootstrap: sweeper: discarded %d expired token(s)", n)
		}
	}

	return nil
}
