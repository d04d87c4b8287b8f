// Package postgres implements the revisioned place store and the
// surrounding rating/comment/user/organization/event repositories
// against PostgreSQL, using squirrel to build statements and pgx's
// database/sql driver (routed through dbresolver for primary/replica
// split) to run them.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
)

// psql is the squirrel statement builder configured for PostgreSQL's
// dollar-sign placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// querier is satisfied by both dbresolver.DB and a *sql.Tx, letting
// repository methods run either against the pool or inside an
// exclusive transaction without duplicating SQL.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB wraps the resolved connection pool and exposes exclusive
// transactions for write operations, matching the shared/exclusive
// handle split of the store's concurrency model.
type DB struct {
	Pool dbresolver.DB
}

// NewDB wraps an already-connected resolver pool.
func NewDB(pool dbresolver.DB) *DB {
	return &DB{Pool: pool}
}

// WithExclusive runs fn inside a single serializable transaction,
// committing on success and rolling back on any returned error — the
// store's exclusive write handle.
func (d *DB) WithExclusive(ctx context.Context, fn func(ctx context.Context, tx querier) error) error {
	tx, err := d.Pool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505), used to swallow duplicate
// tag-row inserts per the store's failure semantics.
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }

	var s sqlStater
	if errors.As(err, &s) {
		return s.SQLState() == "23505"
	}

	return false
}
