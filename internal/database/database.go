// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package database implements the PostgreSQL store for subscriptions,
// visitors, and IP labels.
//
// Cross-request consistency is delegated entirely to the database: both
// primary tables are written through ON CONFLICT upserts keyed on their
// natural uniques (email, session id), so two concurrent requests for the
// same key converge on one row without in-process locking. Schema creation
// is idempotent and checked lazily before write paths, since the service
// may start before the database has ever been initialized.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lib/pq"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/metrics"
)

// DB wraps the connection pool and owns table lifecycle.
type DB struct {
	conn         *sql.DB
	queryTimeout time.Duration

	// schemaReady fast-paths the per-write schema check once the DDL has
	// succeeded in this process.
	schemaReady atomic.Bool
}

// New opens a connection pool against cfg.URL. The pool connects lazily;
// an unreachable database does not fail startup, it surfaces later as
// best-effort write failures and a not-ready health probe.
func New(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is not configured")
	}

	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &DB{conn: conn, queryTimeout: timeout}, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies database connectivity, for the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.opContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// opContext bounds a single store operation.
func (db *DB) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// EnsureSchema creates the subscriptions, visitors, and ip_labels tables
// if absent. Idempotent and safe to call on every write path; after the
// first success it returns immediately.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db.schemaReady.Load() {
		return nil
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	for _, ddl := range schemaDDL {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			logPGError("ensure_schema", err)
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	db.schemaReady.Store(true)
	return nil
}

// logPGError logs a database failure with its driver diagnostics. These
// errors are recovered by the handlers, so the log line and the metric are
// the only trace they leave.
func logPGError(operation string, err error) {
	metrics.RecordDBError(operation)

	event := logging.Error().Str("operation", operation).Err(err)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		event = event.
			Str("code", string(pqErr.Code)).
			Str("detail", pqErr.Detail).
			Str("table", pqErr.Table)
	}
	event.Msg("Database operation failed")
}
