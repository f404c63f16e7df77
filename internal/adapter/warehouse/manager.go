package warehouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// InsertBatchSize caps rows per ClickHouse insert.
const InsertBatchSize = 50_000

// Manager performs the staged, atomic load for one tenant database.
type Manager struct {
	conn     driver.Conn
	database string
	logger   zerolog.Logger
}

// NewManager wraps an open tenant-database connection.
func NewManager(conn driver.Conn, database string, logger zerolog.Logger) *Manager {
	return &Manager{
		conn:     conn,
		database: database,
		logger:   logger.With().Str("component", "warehouse").Str("database", database).Logger(),
	}
}

func stagingTable(fileType model.FileType) string {
	if fileType == model.FileTypeCredit {
		return "staging_credit"
	}
	return "staging_payment"
}

func factTable(fileType model.FileType) string {
	if fileType == model.FileTypeCredit {
		return "fact_credit"
	}
	return "fact_payment"
}

// TruncateStaging empties the staging table for one file type. Idempotent.
func (m *Manager) TruncateStaging(ctx context.Context, fileType model.FileType) error {
	if err := m.conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", stagingTable(fileType))); err != nil {
		return fmt.Errorf("truncate %s: %w", stagingTable(fileType), err)
	}
	return nil
}

// InsertStagingCredits bulk-inserts credit rows into staging, split into
// insert batches of at most InsertBatchSize. Each batch send is retried with
// exponential backoff before the sync gives up.
func (m *Manager) InsertStagingCredits(ctx context.Context, rows []CreditRow) error {
	for start := 0; start < len(rows); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(rows))
		err := m.sendBatch(ctx, "staging_credit", creditColumns, func(batch driver.Batch) error {
			for _, r := range rows[start:end] {
				if err := appendCredit(batch, r); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("insert staging_credit: %w", err)
		}
	}
	return nil
}

// InsertStagingPayments bulk-inserts payment rows into staging.
func (m *Manager) InsertStagingPayments(ctx context.Context, rows []PaymentRow) error {
	for start := 0; start < len(rows); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(rows))
		err := m.sendBatch(ctx, "staging_payment", paymentColumns, func(batch driver.Batch) error {
			for _, r := range rows[start:end] {
				if err := appendPayment(batch, r); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("insert staging_payment: %w", err)
		}
	}
	return nil
}

func (m *Manager) sendBatch(ctx context.Context, table, columns string, fill func(driver.Batch) error) error {
	attempt := func() error {
		batch, err := m.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", table, columns))
		if err != nil {
			return err
		}
		if err := fill(batch); err != nil {
			return backoff.Permanent(err)
		}
		return batch.Send()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(attempt, policy)
}

// ReplacePartition atomically swaps the loan-type partition of the fact
// table with the staging table's contents. Readers observe either the old or
// the new partition, never a mix.
func (m *Manager) ReplacePartition(ctx context.Context, fileType model.FileType, loanType model.LoanType) error {
	stmt := fmt.Sprintf("ALTER TABLE %s REPLACE PARTITION '%s' FROM %s",
		factTable(fileType), loanType, stagingTable(fileType))
	if err := m.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("replace partition %s/%s: %w", factTable(fileType), loanType, err)
	}
	m.logger.Info().
		Str("table", factTable(fileType)).
		Str("loan_type", string(loanType)).
		Msg("partition replaced from staging")
	return nil
}

// DistinctLoanIDs lists the loan account numbers already committed to the
// credit partition, for cross-file validation.
func (m *Manager) DistinctLoanIDs(ctx context.Context, loanType model.LoanType) ([]string, error) {
	rows, err := m.conn.Query(ctx,
		"SELECT DISTINCT loan_account_number FROM fact_credit WHERE loan_type = ?", string(loanType))
	if err != nil {
		return nil, fmt.Errorf("distinct loan ids %s: %w", loanType, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan loan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying connection.
func (m *Manager) Close() error { return m.conn.Close() }
