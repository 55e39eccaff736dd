package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrreview/internal/domain/audit"
	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/core"
	"hrreview/internal/domain/cycle"
	"hrreview/internal/domain/evaluation"
	"hrreview/internal/platform/config"
	"hrreview/internal/platform/db"
	"hrreview/internal/platform/jobs"
	"hrreview/internal/platform/sqlite"
)

// backend holds one store per domain for the configured driver.
type backend struct {
	pool *pgxpool.Pool
	sql  *sql.DB

	auth        auth.StoreAPI
	core        core.StoreAPI
	evaluations evaluation.StoreAPI
	cycles      cycle.StoreAPI
	audit       interface {
		audit.Recorder
		audit.Reader
	}
	runs jobs.RunLog
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		conn, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{
			sql:         conn,
			auth:        auth.NewSQLiteStore(conn),
			core:        core.NewSQLiteStore(conn),
			evaluations: evaluation.NewSQLiteStore(conn),
			cycles:      cycle.NewSQLiteStore(conn),
			audit:       audit.NewSQLite(conn),
			runs:        jobs.SQLiteRunLog{DB: conn},
		}, nil
	default:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, os.DirFS(cfg.MigrationsDir)); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return &backend{
			pool:        pool,
			auth:        auth.NewStore(pool),
			core:        core.NewStore(pool),
			evaluations: evaluation.NewStore(pool),
			cycles:      cycle.NewStore(pool),
			audit:       audit.New(pool),
			runs:        jobs.PostgresRunLog{DB: pool},
		}, nil
	}
}

func (b *backend) ping(ctx context.Context) error {
	if b.pool != nil {
		return b.pool.Ping(ctx)
	}
	return b.sql.PingContext(ctx)
}

func (b *backend) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.sql != nil {
		_ = b.sql.Close()
	}
}
