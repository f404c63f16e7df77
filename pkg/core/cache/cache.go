// Package cache provides the tenant-aware Redis cache shared by the sync
// engine and the query surfaces. Keys follow {tenant}:{resource}:{parts...}.
// Every operation is safe to call with Redis down: failures are logged and
// the caller falls through to the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// TTLs per cached resource.
const (
	TTLSyncConfigs      = 2 * time.Minute
	TTLSyncLogs         = time.Minute
	TTLRowCounts        = 5 * time.Minute
	TTLProfiles         = 10 * time.Minute
	TTLValidationErrors = 30 * time.Minute
	TTLExistingLoans    = 5 * time.Minute
)

// Cache wraps the shared Redis client.
type Cache struct {
	rdb    *redis.Client
	logger zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over an existing Redis client.
func New(rdb *redis.Client, logger zerolog.Logger) *Cache {
	return &Cache{
		rdb:    rdb,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

func key(tenantID, resource string, parts ...string) string {
	segments := append([]string{tenantID, resource}, parts...)
	return strings.Join(segments, ":")
}

// Key builders for the resources invalidated after a sync.

func SyncConfigsKey(tenantID string) string { return key(tenantID, "sync_configs") }

func SyncLogsKey(tenantID string, limit int) string {
	return key(tenantID, "sync_logs", "recent", fmt.Sprint(limit))
}

func RowCountKey(tenantID, table string, loanType model.LoanType) string {
	return key(tenantID, "ch_count", table, string(loanType))
}

func ProfileKey(tenantID string, loanType model.LoanType, dataType string) string {
	return key(tenantID, "profile", string(loanType), dataType)
}

func ValidationErrorsKey(tenantID, syncLogID string) string {
	return key(tenantID, "val_errors", syncLogID)
}

func ExistingLoansKey(tenantID string, loanType model.LoanType) string {
	return key(tenantID, "existing_loans", string(loanType))
}

// Get unmarshals the cached JSON value into dest. Returns false on miss or
// any Redis failure.
func (c *Cache) Get(ctx context.Context, k string, dest any) bool {
	data, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", k).Msg("cache get failed")
		}
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", k).Msg("cache value unmarshal failed")
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

// Set stores the JSON encoding of value under k. Failures are logged, never
// returned.
func (c *Cache) Set(ctx context.Context, k string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", k).Msg("cache value marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, k, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", k).Msg("cache set failed")
	}
}

// Delete removes one or more keys, logging failures.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int("keys", len(keys)).Msg("cache delete failed")
	}
}

// Stats reports hit/miss counters for this process.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// GetExistingLoans returns the cached distinct loan ids for the loan type.
func (c *Cache) GetExistingLoans(ctx context.Context, tenantID string, loanType model.LoanType) ([]string, bool) {
	var ids []string
	if !c.Get(ctx, ExistingLoansKey(tenantID, loanType), &ids) {
		return nil, false
	}
	return ids, true
}

// SetExistingLoans caches the distinct loan ids for the loan type.
func (c *Cache) SetExistingLoans(ctx context.Context, tenantID string, loanType model.LoanType, ids []string) {
	c.Set(ctx, ExistingLoansKey(tenantID, loanType), ids, TTLExistingLoans)
}

// InvalidateAfterSync drops every cache entry that becomes stale once a sync
// reaches a terminal state for the (tenant, loan_type) pair.
func (c *Cache) InvalidateAfterSync(ctx context.Context, tenantID string, loanType model.LoanType) {
	keys := []string{
		SyncConfigsKey(tenantID),
		SyncLogsKey(tenantID, 10),
		SyncLogsKey(tenantID, 20),
		RowCountKey(tenantID, "fact_credit", loanType),
		RowCountKey(tenantID, "fact_payment", loanType),
		ProfileKey(tenantID, loanType, "credit"),
		ProfileKey(tenantID, loanType, "payment"),
		ExistingLoansKey(tenantID, loanType),
	}
	c.logger.Info().
		Str("tenant", tenantID).
		Str("loan_type", string(loanType)).
		Int("keys", len(keys)).
		Msg("invalidating caches after sync")
	c.Delete(ctx, keys...)
}
