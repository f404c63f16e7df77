// Package staging implements the Redis-backed ephemeral store that holds
// uploaded rows between receipt and sync. Rows live in a list per
// (tenant, loan_type, file_type) so the row count is O(1) and iteration is
// chunk-bounded. Failed rows from past syncs live in a TTL-bounded sibling
// list for later preview and download.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
)

const (
	uploadPrefix = "extbank:"
	failedPrefix = "extbank_failed:"

	// FailedRowTTL bounds how long failed raw rows stay retrievable.
	FailedRowTTL = 24 * time.Hour

	// writeBatchSize caps rows per RPUSH command.
	writeBatchSize = 5000
)

// Store wraps the shared Redis client with the upload key layout.
type Store struct {
	rdb       *redis.Client
	chunkSize int
	logger    zerolog.Logger
}

// New creates a store reading and writing chunks of chunkSize rows.
func New(rdb *redis.Client, chunkSize int, logger zerolog.Logger) *Store {
	return &Store{
		rdb:       rdb,
		chunkSize: chunkSize,
		logger:    logger.With().Str("component", "staging-store").Logger(),
	}
}

func uploadKey(tenantID string, loanType model.LoanType, fileType model.FileType) string {
	return fmt.Sprintf("%s%s:%s:%s", uploadPrefix, tenantID, loanType, fileType)
}

func failedKey(tenantID string, loanType model.LoanType, fileType model.FileType) string {
	return fmt.Sprintf("%s%s:%s:%s", failedPrefix, tenantID, loanType, fileType)
}

// RowCount returns the number of staged rows. O(1) via LLEN.
func (s *Store) RowCount(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType) (int, error) {
	n, err := s.rdb.LLen(ctx, uploadKey(tenantID, loanType, fileType)).Result()
	if err != nil {
		return 0, fmt.Errorf("row count %s/%s/%s: %w", tenantID, loanType, fileType, err)
	}
	return int(n), nil
}

// StoreRows appends uploaded rows to the staging list.
func (s *Store) StoreRows(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType, rows []validate.Row) error {
	return s.push(ctx, uploadKey(tenantID, loanType, fileType), rows, 0)
}

// StoreFailedRows appends raw rows that failed validation to the TTL-bounded
// failed store.
func (s *Store) StoreFailedRows(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType, rows []validate.Row) error {
	return s.push(ctx, failedKey(tenantID, loanType, fileType), rows, FailedRowTTL)
}

func (s *Store) push(ctx context.Context, key string, rows []validate.Row, ttl time.Duration) error {
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		values := make([]any, 0, end-start)
		for _, row := range rows[start:end] {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal row: %w", err)
			}
			values = append(values, data)
		}
		if err := s.rdb.RPush(ctx, key, values...).Err(); err != nil {
			return fmt.Errorf("rpush %s: %w", key, err)
		}
	}
	if ttl > 0 && len(rows) > 0 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// FailedRows returns previously stored failed rows for preview or download.
func (s *Store) FailedRows(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType) ([]validate.Row, error) {
	raw, err := s.rdb.LRange(ctx, failedKey(tenantID, loanType, fileType), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed rows %s: %w", failedKey(tenantID, loanType, fileType), err)
	}
	rows := make([]validate.Row, 0, len(raw))
	for _, item := range raw {
		var row validate.Row
		if err := json.Unmarshal([]byte(item), &row); err != nil {
			return nil, fmt.Errorf("unmarshal failed row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ClearUpload deletes the staged upload data.
func (s *Store) ClearUpload(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType) error {
	if err := s.rdb.Del(ctx, uploadKey(tenantID, loanType, fileType)).Err(); err != nil {
		return fmt.Errorf("clear upload: %w", err)
	}
	return nil
}

// ClearFailed deletes the failed-row list.
func (s *Store) ClearFailed(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType) error {
	if err := s.rdb.Del(ctx, failedKey(tenantID, loanType, fileType)).Err(); err != nil {
		return fmt.Errorf("clear failed rows: %w", err)
	}
	return nil
}

// Iterator streams staged rows in chunks of the store's chunk size. It is
// single-pass and not restartable within one sync.
type Iterator struct {
	store    *Store
	key      string
	offset   int64
	finished bool
}

// Iterate starts a chunked read over the staged rows of one file type.
func (s *Store) Iterate(tenantID string, loanType model.LoanType, fileType model.FileType) *Iterator {
	return &Iterator{store: s, key: uploadKey(tenantID, loanType, fileType)}
}

// Next returns the next chunk, or (nil, nil) when the sequence is exhausted.
func (it *Iterator) Next(ctx context.Context) ([]validate.Row, error) {
	if it.finished {
		return nil, nil
	}
	stop := it.offset + int64(it.store.chunkSize) - 1
	raw, err := it.store.rdb.LRange(ctx, it.key, it.offset, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", it.key, err)
	}
	if len(raw) == 0 {
		it.finished = true
		return nil, nil
	}
	it.offset += int64(len(raw))
	if len(raw) < it.store.chunkSize {
		it.finished = true
	}

	rows := make([]validate.Row, 0, len(raw))
	for _, item := range raw {
		var row validate.Row
		if err := json.Unmarshal([]byte(item), &row); err != nil {
			return nil, fmt.Errorf("unmarshal staged row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
