// Package postgres exports validated records into PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Exporter copies records into a table inside one transaction.
type Exporter struct {
	db Beginner
}

// NewExporter creates an Exporter over db.
func NewExporter(db Beginner) *Exporter {
	return &Exporter{db: db}
}

// Export copies records into target. keys name both the record fields and
// the destination columns. Either every row is committed or none is.
func (x *Exporter) Export(ctx context.Context, target string, keys []string, records []engine.Record) (int64, error) {
	if len(keys) == 0 {
		return 0, fmt.Errorf("export %s: no columns", target)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := x.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	n, err := tx.CopyFrom(ctx, Identifier(target), keys, pgx.CopyFromRows(Rows(keys, records)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", target, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Identifier splits a possibly schema-qualified table name.
func Identifier(target string) pgx.Identifier {
	return pgx.Identifier(strings.Split(target, "."))
}

// Rows lays records out in keys order. Missing fields become NULL.
func Rows(keys []string, records []engine.Record) [][]any {
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(keys))
		for j, k := range keys {
			row[j] = rec[k]
		}
		rows[i] = row
	}
	return rows
}

// Connect opens a pool configured from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
