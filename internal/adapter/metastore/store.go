// Package metastore persists sync metadata in the tenant's Postgres schema:
// sync configurations, sync logs and bulk validation error descriptors. The
// tenant schema is passed explicitly at construction; no ambient state.
package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
)

// ErrorInsertBatchSize caps validation error descriptors per write.
const ErrorInsertBatchSize = 1000

// Store is a per-tenant handle over the shared connection pool.
type Store struct {
	pool   *pgxpool.Pool
	schema string
	logger zerolog.Logger
}

// New binds the pool to one tenant schema.
func New(pool *pgxpool.Pool, schema string, logger zerolog.Logger) *Store {
	return &Store{
		pool:   pool,
		schema: schema,
		logger: logger.With().Str("component", "metastore").Str("schema", schema).Logger(),
	}
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("%s.%s", s.schema, name)
}

// CreateSyncLog inserts the freshly opened log row.
func (s *Store) CreateSyncLog(ctx context.Context, log *model.SyncLog) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, loan_type, batch_id, status, total_credit_rows, total_payment_rows,
		                 valid_credit_rows, valid_payment_rows, error_count, error_summary, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, s.table("sync_logs")),
		log.ID, log.LoanType, log.BatchID, log.Status,
		log.TotalCreditRows, log.TotalPaymentRows,
		log.ValidCreditRows, log.ValidPaymentRows,
		log.ErrorCount, mustJSON(log.ErrorSummary), log.StartedAt)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

// UpdateSyncStatus persists a state machine transition. Idempotent single
// column update so observers can watch progress.
func (s *Store) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status model.SyncStatus) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET status = $1 WHERE id = $2", s.table("sync_logs")),
		status, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	return nil
}

// UpdateSyncTotals records the O(1) row counts read at fetch time.
func (s *Store) UpdateSyncTotals(ctx context.Context, id uuid.UUID, totalCredit, totalPayment int) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET total_credit_rows = $1, total_payment_rows = $2 WHERE id = $3",
		s.table("sync_logs")),
		totalCredit, totalPayment, id)
	if err != nil {
		return fmt.Errorf("update sync totals: %w", err)
	}
	return nil
}

// FinishSyncLog writes the terminal snapshot: status, counters, summary and
// completion time.
func (s *Store) FinishSyncLog(ctx context.Context, log *model.SyncLog) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET status = $1, total_credit_rows = $2, total_payment_rows = $3,
		               valid_credit_rows = $4, valid_payment_rows = $5, error_count = $6,
		               error_summary = $7, completed_at = $8
		 WHERE id = $9`, s.table("sync_logs")),
		log.Status, log.TotalCreditRows, log.TotalPaymentRows,
		log.ValidCreditRows, log.ValidPaymentRows, log.ErrorCount,
		mustJSON(log.ErrorSummary), log.CompletedAt, log.ID)
	if err != nil {
		return fmt.Errorf("finish sync log: %w", err)
	}
	return nil
}

// BulkInsertValidationErrors persists error descriptors for one file type in
// COPY batches of at most ErrorInsertBatchSize rows.
func (s *Store) BulkInsertValidationErrors(ctx context.Context, logID uuid.UUID, fileType model.FileType, errors []validate.FieldError) error {
	columns := []string{"sync_log_id", "row_number", "file_type", "field_name", "error_type", "error_message", "raw_value"}

	for start := 0; start < len(errors); start += ErrorInsertBatchSize {
		end := min(start+ErrorInsertBatchSize, len(errors))
		batch := errors[start:end]

		_, err := s.pool.CopyFrom(ctx,
			pgx.Identifier{s.schema, "validation_errors"}, columns,
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				e := batch[i]
				var raw any
				if e.RawValue != "" {
					raw = e.RawValue
				}
				return []any{logID, e.RowNumber, string(fileType), e.FieldName, e.ErrorType, e.Message, raw}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy validation errors: %w", err)
		}
	}
	return nil
}

// GetSyncConfiguration loads one loan type's sync settings.
func (s *Store) GetSyncConfiguration(ctx context.Context, loanType model.LoanType) (*model.SyncConfiguration, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT loan_type, external_bank_url, sync_interval_minutes, is_enabled, last_sync_at, last_sync_status
		 FROM %s WHERE loan_type = $1`, s.table("sync_configurations")), loanType)

	var cfg model.SyncConfiguration
	err := row.Scan(&cfg.LoanType, &cfg.ExternalBankURL, &cfg.SyncIntervalMinutes,
		&cfg.IsEnabled, &cfg.LastSyncAt, &cfg.LastSyncStatus)
	if err != nil {
		return nil, fmt.Errorf("get sync configuration %s: %w", loanType, err)
	}
	return &cfg, nil
}

// UpsertSyncConfiguration seeds one loan type's settings. An existing row for
// the loan type is left unchanged.
func (s *Store) UpsertSyncConfiguration(ctx context.Context, cfg model.SyncConfiguration) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (loan_type, external_bank_url, sync_interval_minutes, is_enabled)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (loan_type) DO NOTHING`, s.table("sync_configurations")),
		cfg.LoanType, cfg.ExternalBankURL, cfg.SyncIntervalMinutes, cfg.IsEnabled)
	if err != nil {
		return fmt.Errorf("upsert sync configuration %s: %w", cfg.LoanType, err)
	}
	return nil
}

// StampSyncConfiguration records the outcome of the latest sync on the loan
// type's configuration row. Missing rows are a no-op.
func (s *Store) StampSyncConfiguration(ctx context.Context, loanType model.LoanType, status model.SyncStatus, at time.Time) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET last_sync_at = $1, last_sync_status = $2 WHERE loan_type = $3",
		s.table("sync_configurations")),
		at, status, loanType)
	if err != nil {
		return fmt.Errorf("stamp sync configuration %s: %w", loanType, err)
	}
	return nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
