// Package lock provides the Redis-backed distributed mutex that serializes
// syncs per (tenant, loan_type). The TTL guarantees eventual release if the
// holder crashes; release itself is an unconditional delete.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// Locker acquires and releases sync locks in a shared key-value store.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a locker whose locks expire after ttl.
func New(rdb *redis.Client, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

// Key is the lock key for one (tenant, loan_type) pair.
func Key(tenantID string, loanType model.LoanType) string {
	return fmt.Sprintf("sync_lock:%s:%s", tenantID, loanType)
}

// TTL returns the configured lock lifetime.
func (l *Locker) TTL() time.Duration { return l.ttl }

// Acquire attempts an atomic set-if-absent with TTL. The token identifies
// the holding invocation (its batch id). Returns false when another sync
// holds the lock.
func (l *Locker) Acquire(ctx context.Context, tenantID string, loanType model.LoanType, token string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, Key(tenantID, loanType), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock key unconditionally.
func (l *Locker) Release(ctx context.Context, tenantID string, loanType model.LoanType) error {
	if err := l.rdb.Del(ctx, Key(tenantID, loanType)).Err(); err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}
