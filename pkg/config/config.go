// Package config loads this service's runtime configuration, ported
// from the teacher's reflection-based SetConfigFromEnvVars rather than
// a flag-parsing or YAML layer.
package config

import (
	"fmt"

	"placedir/pkg"
)

// Config is the top level configuration struct for the entire
// application, populated from environment variables via the "env"
// struct tag.
type Config struct {
	EnvName       string `env:"ENV_NAME"`
	ServerAddress string `env:"SERVER_ADDRESS"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	PrimaryDBHost     string `env:"DB_HOST"`
	PrimaryDBUser     string `env:"DB_USER"`
	PrimaryDBPassword string `env:"DB_PASSWORD"`
	PrimaryDBName     string `env:"DB_NAME"`
	PrimaryDBPort     string `env:"DB_PORT"`

	ReplicaDBHost     string `env:"DB_REPLICA_HOST"`
	ReplicaDBUser     string `env:"DB_REPLICA_USER"`
	ReplicaDBPassword string `env:"DB_REPLICA_PASSWORD"`
	ReplicaDBName     string `env:"DB_REPLICA_NAME"`
	ReplicaDBPort     string `env:"DB_REPLICA_PORT"`

	RedisHost string `env:"REDIS_HOST"`
	RedisPort string `env:"REDIS_PORT"`
	RedisPass string `env:"REDIS_PASSWORD"`

	RabbitMQHost     string `env:"RABBITMQ_HOST"`
	RabbitMQPortAMQP string `env:"RABBITMQ_PORT_AMQP"`
	RabbitMQUser     string `env:"RABBITMQ_DEFAULT_USER"`
	RabbitMQPass     string `env:"RABBITMQ_DEFAULT_PASS"`

	SearchIndexPath string `env:"SEARCH_INDEX_PATH"`

	JWTSecret     string `env:"JWT_SECRET"`
	JWTTTLMinutes int64  `env:"JWT_TTL_MINUTES"`

	TokenSweepIntervalSeconds int64 `env:"TOKEN_SWEEP_INTERVAL_SECONDS"`

	CacheTTLSeconds int64 `env:"CACHE_TTL_SECONDS"`
}

// New builds a Config from the process environment: every tagged field
// is read via SetConfigFromEnvVars, then defaults are applied, when the
// value is unset, only to ServerAddress, PublicBaseURL, SearchIndexPath,
// JWTSecret, JWTTTLMinutes, TokenSweepIntervalSeconds and CacheTTLSeconds.
func New() (*Config, error) {
	cfg := &Config{}
	if err := common.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = ":3000"
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:3000"
	}

	if cfg.SearchIndexPath == "" {
		cfg.SearchIndexPath = "./data/search.bleve"
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "insecure-dev-secret-change-me"
	}

	if cfg.JWTTTLMinutes == 0 {
		cfg.JWTTTLMinutes = 60 * 24
	}

	if cfg.TokenSweepIntervalSeconds == 0 {
		cfg.TokenSweepIntervalSeconds = 300
	}

	if cfg.CacheTTLSeconds == 0 {
		cfg.CacheTTLSeconds = 30
	}

	return cfg, nil
}

// PostgresPrimaryDSN builds the primary connection string in
// libpq keyword/value form, matching the teacher's setupPostgreSQLConnection.
func (c *Config) PostgresPrimaryDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.PrimaryDBHost, c.PrimaryDBUser, c.PrimaryDBPassword, c.PrimaryDBName, c.PrimaryDBPort)
}

// PostgresReplicaDSN builds the replica connection string. If no
// replica is configured, it falls back to the primary DSN so a
// single-node deployment still works against dbresolver's
// primary/replica split.
func (c *Config) PostgresReplicaDSN() string {
	if c.ReplicaDBHost == "" {
		return c.PostgresPrimaryDSN()
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.ReplicaDBHost, c.ReplicaDBUser, c.ReplicaDBPassword, c.ReplicaDBName, c.ReplicaDBPort)
}

// RedisDSN builds the redis connection URL consumed by redis.ParseURL.
func (c *Config) RedisDSN() string {
	if c.RedisPass == "" {
		return fmt.Sprintf("redis://%s:%s", c.RedisHost, c.RedisPort)
	}

	return fmt.Sprintf("redis://:%s@%s:%s", c.RedisPass, c.RedisHost, c.RedisPort)
}

// RabbitMQDSN builds the amqp connection URL.
func (c *Config) RabbitMQDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPass, c.RabbitMQHost, c.RabbitMQPortAMQP)
}
