package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, zerolog.Nop()), mr
}

func TestKeyBuilders(t *testing.T) {
	tests := []struct{ got, want string }{
		{SyncConfigsKey("BANK001"), "BANK001:sync_configs"},
		{SyncLogsKey("BANK001", 10), "BANK001:sync_logs:recent:10"},
		{RowCountKey("BANK001", "fact_credit", model.LoanTypeRetail), "BANK001:ch_count:fact_credit:RETAIL"},
		{ProfileKey("BANK001", model.LoanTypeRetail, "credit"), "BANK001:profile:RETAIL:credit"},
		{ValidationErrorsKey("BANK001", "abc"), "BANK001:val_errors:abc"},
		{ExistingLoansKey("BANK001", model.LoanTypeCommercial), "BANK001:existing_loans:COMMERCIAL"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var missed []string
	if c.Get(ctx, "nope", &missed) {
		t.Error("get on missing key reported a hit")
	}

	c.Set(ctx, "k", []string{"a", "b"}, TTLExistingLoans)
	var got []string
	if !c.Get(ctx, "k", &got) {
		t.Fatal("get after set missed")
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("value = %v", got)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestValuesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetExistingLoans(ctx, "BANK001", model.LoanTypeRetail, []string{"LOAN_A"})
	if _, ok := c.GetExistingLoans(ctx, "BANK001", model.LoanTypeRetail); !ok {
		t.Fatal("existing loans not cached")
	}

	mr.FastForward(TTLExistingLoans + 1)
	if _, ok := c.GetExistingLoans(ctx, "BANK001", model.LoanTypeRetail); ok {
		t.Error("existing loans survived the TTL")
	}
}

func TestInvalidateAfterSync(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetExistingLoans(ctx, "BANK001", model.LoanTypeRetail, []string{"LOAN_A"})
	c.Set(ctx, RowCountKey("BANK001", "fact_credit", model.LoanTypeRetail), 42, TTLRowCounts)
	// Other tenants and loan types are untouched.
	c.SetExistingLoans(ctx, "BANK002", model.LoanTypeRetail, []string{"LOAN_B"})
	c.SetExistingLoans(ctx, "BANK001", model.LoanTypeCommercial, []string{"LOAN_C"})

	c.InvalidateAfterSync(ctx, "BANK001", model.LoanTypeRetail)

	if _, ok := c.GetExistingLoans(ctx, "BANK001", model.LoanTypeRetail); ok {
		t.Error("invalidated loan set still cached")
	}
	var count int
	if c.Get(ctx, RowCountKey("BANK001", "fact_credit", model.LoanTypeRetail), &count) {
		t.Error("invalidated row count still cached")
	}
	if _, ok := c.GetExistingLoans(ctx, "BANK002", model.LoanTypeRetail); !ok {
		t.Error("other tenant's cache was invalidated")
	}
	if _, ok := c.GetExistingLoans(ctx, "BANK001", model.LoanTypeCommercial); !ok {
		t.Error("other loan type's cache was invalidated")
	}
}

func TestCacheIsSafeWithRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	ctx := context.Background()

	// No panics, no errors surfaced; callers just miss.
	c.Set(ctx, "k", "v", TTLRowCounts)
	var v string
	if c.Get(ctx, "k", &v) {
		t.Error("get against closed redis reported a hit")
	}
	c.InvalidateAfterSync(ctx, "BANK001", model.LoanTypeRetail)
}
