package metastore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Per-tenant metadata tables. The tenants registry itself lives in the shared
// public schema and is owned by the registry, not by this store.
const tenantTablesSQL = `
CREATE TABLE IF NOT EXISTS sync_configurations (
    id BIGSERIAL PRIMARY KEY,
    loan_type VARCHAR(20) UNIQUE NOT NULL,
    external_bank_url VARCHAR(500) NOT NULL,
    sync_interval_minutes INTEGER NOT NULL DEFAULT 60,
    is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    last_sync_at TIMESTAMPTZ NULL,
    last_sync_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sync_logs (
    id UUID PRIMARY KEY,
    loan_type VARCHAR(20) NOT NULL,
    batch_id UUID NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'STARTED',
    total_credit_rows INTEGER NOT NULL DEFAULT 0,
    total_payment_rows INTEGER NOT NULL DEFAULT 0,
    valid_credit_rows INTEGER NOT NULL DEFAULT 0,
    valid_payment_rows INTEGER NOT NULL DEFAULT 0,
    error_count INTEGER NOT NULL DEFAULT 0,
    error_summary JSONB NOT NULL DEFAULT '{}',
    started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ NULL
);

CREATE TABLE IF NOT EXISTS validation_errors (
    id BIGSERIAL PRIMARY KEY,
    sync_log_id UUID NOT NULL REFERENCES sync_logs(id) ON DELETE CASCADE,
    row_number INTEGER NOT NULL,
    file_type VARCHAR(20) NOT NULL,
    field_name VARCHAR(100) NOT NULL,
    error_type VARCHAR(50) NOT NULL,
    error_message TEXT NOT NULL,
    raw_value TEXT NULL
);

CREATE INDEX IF NOT EXISTS idx_validation_errors_sync_log
    ON validation_errors(sync_log_id);

CREATE INDEX IF NOT EXISTS idx_sync_logs_started_at
    ON sync_logs(started_at DESC);
`

// EnsureSchema creates the tenant schema and its metadata tables.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	// Scope table creation to the tenant schema on this one connection.
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
		return fmt.Errorf("set search_path %s: %w", schema, err)
	}
	if _, err := conn.Exec(ctx, tenantTablesSQL); err != nil {
		return fmt.Errorf("create tables in %s: %w", schema, err)
	}
	if _, err := conn.Exec(ctx, "SET search_path TO public"); err != nil {
		return fmt.Errorf("reset search_path: %w", err)
	}
	return nil
}

// ConnectPool opens the shared Postgres pool from a DSN.
func ConnectPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}
