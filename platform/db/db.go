// Package db opens the Postgres pool, applies migrations and holds the small
// transaction and error helpers the repositories share.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_backend/platform/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"

	applicationName = "crm_backend"
)

// NewPool connects and pings. Pool bounds come from config; a zero value
// keeps the pgxpool default.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if n := cfg.GetDatabaseMaxConns(); n > 0 {
		pc.MaxConns = n
	}
	if n := cfg.GetDatabaseMinConns(); n > 0 && n <= pc.MaxConns {
		pc.MinConns = n
	}
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute
	if _, set := pc.ConnConfig.RuntimeParams["application_name"]; !set {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Probe adapts a pool to the readiness check.
type Probe struct {
	pool *pgxpool.Pool
}

func NewProbe(pool *pgxpool.Pool) Probe {
	return Probe{pool: pool}
}

func (p Probe) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// WithTx commits when fn returns nil and rolls back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, fn)
}

// IsUniqueViolation reports a unique constraint violation, limited to the
// named constraint unless constraint is empty.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != CodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
