package staging

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
)

func newTestStore(t *testing.T, chunkSize int) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, chunkSize, zerolog.Nop()), mr
}

func rows(n, offset int) []validate.Row {
	out := make([]validate.Row, n)
	for i := range out {
		out[i] = validate.Row{"loan_account_number": fmt.Sprintf("LOAN_%04d", offset+i)}
	}
	return out
}

func TestRowCountEmpty(t *testing.T) {
	store, _ := newTestStore(t, 10)
	n, err := store.RowCount(context.Background(), "BANK001", model.LoanTypeRetail, model.FileTypeCredit)
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestStoreAndIterateChunks(t *testing.T) {
	store, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := store.StoreRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit, rows(25, 0)); err != nil {
		t.Fatalf("StoreRows: %v", err)
	}

	n, err := store.RowCount(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit)
	if err != nil || n != 25 {
		t.Fatalf("count = %d (%v), want 25", n, err)
	}

	it := store.Iterate("BANK001", model.LoanTypeRetail, model.FileTypeCredit)
	var sizes []int
	var seen []string
	for {
		chunk, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if chunk == nil {
			break
		}
		sizes = append(sizes, len(chunk))
		for _, row := range chunk {
			seen = append(seen, row["loan_account_number"])
		}
	}

	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Errorf("chunk sizes = %v, want [10 10 5]", sizes)
	}
	for i, id := range seen {
		if want := fmt.Sprintf("LOAN_%04d", i); id != want {
			t.Fatalf("row %d = %s, want %s (order must be preserved)", i, id, want)
		}
	}

	// The iterator is single-pass.
	if chunk, _ := it.Next(ctx); chunk != nil {
		t.Error("exhausted iterator yielded another chunk")
	}
}

func TestIterateKeysAreIsolated(t *testing.T) {
	store, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := store.StoreRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit, rows(3, 0)); err != nil {
		t.Fatalf("StoreRows: %v", err)
	}

	for name, it := range map[string]*Iterator{
		"other tenant":    store.Iterate("BANK002", model.LoanTypeRetail, model.FileTypeCredit),
		"other loan type": store.Iterate("BANK001", model.LoanTypeCommercial, model.FileTypeCredit),
		"other file type": store.Iterate("BANK001", model.LoanTypeRetail, model.FileTypePayment),
	} {
		if chunk, err := it.Next(ctx); err != nil || chunk != nil {
			t.Errorf("%s: got chunk %v (err %v), want empty", name, chunk, err)
		}
	}
}

func TestClearUpload(t *testing.T) {
	store, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := store.StoreRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit, rows(5, 0)); err != nil {
		t.Fatalf("StoreRows: %v", err)
	}
	if err := store.ClearUpload(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit); err != nil {
		t.Fatalf("ClearUpload: %v", err)
	}
	if n, _ := store.RowCount(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit); n != 0 {
		t.Errorf("count after clear = %d, want 0", n)
	}
}

func TestFailedRowsRoundTripAndTTL(t *testing.T) {
	store, mr := newTestStore(t, 10)
	ctx := context.Background()

	failed := []validate.Row{{"loan_account_number": "BAD_1", "customer_type": "X"}}
	if err := store.StoreFailedRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit, failed); err != nil {
		t.Fatalf("StoreFailedRows: %v", err)
	}

	got, err := store.FailedRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit)
	if err != nil {
		t.Fatalf("FailedRows: %v", err)
	}
	if len(got) != 1 || got[0]["customer_type"] != "X" {
		t.Errorf("failed rows = %+v", got)
	}

	// Failed rows expire after the TTL.
	mr.FastForward(FailedRowTTL + 1)
	got, err = store.FailedRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypeCredit)
	if err != nil {
		t.Fatalf("FailedRows after TTL: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("failed rows survived the TTL: %+v", got)
	}
}

func TestClearFailed(t *testing.T) {
	store, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := store.StoreFailedRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypePayment, rows(2, 0)); err != nil {
		t.Fatalf("StoreFailedRows: %v", err)
	}
	if err := store.ClearFailed(ctx, "BANK001", model.LoanTypeRetail, model.FileTypePayment); err != nil {
		t.Fatalf("ClearFailed: %v", err)
	}
	if got, _ := store.FailedRows(ctx, "BANK001", model.LoanTypeRetail, model.FileTypePayment); len(got) != 0 {
		t.Errorf("failed rows after clear = %+v", got)
	}
}
