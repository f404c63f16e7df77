// Package sync implements the per-tenant sync engine: the chunked,
// bounded-memory pipeline that fetches staged uploads, validates and
// normalizes every record, stages the results in the warehouse and commits
// the change as an atomic partition swap under a distributed lock.
package sync

import (
	"context"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
	"github.com/izgi-a/findata-adapter/internal/extbank/staging"
)

// RowIterator yields chunks of staged rows. Next returns (nil, nil) once the
// sequence is exhausted.
type RowIterator interface {
	Next(ctx context.Context) ([]validate.Row, error)
}

// Fetcher binds the shared staging store to one tenant, giving the engine a
// tenant-free view of the upload read path.
type Fetcher struct {
	store    *staging.Store
	tenantID string
}

// NewFetcher creates the fetcher for one tenant.
func NewFetcher(store *staging.Store, tenantID string) *Fetcher {
	return &Fetcher{store: store, tenantID: tenantID}
}

// RowCount reads the O(1) size counter for one file type.
func (f *Fetcher) RowCount(ctx context.Context, loanType model.LoanType, fileType model.FileType) (int, error) {
	return f.store.RowCount(ctx, f.tenantID, loanType, fileType)
}

// Iterate starts a single-pass chunked read over one file type.
func (f *Fetcher) Iterate(loanType model.LoanType, fileType model.FileType) RowIterator {
	return f.store.Iterate(f.tenantID, loanType, fileType)
}

// StoreFailedRows appends raw failed rows to the TTL-bounded failed store.
func (f *Fetcher) StoreFailedRows(ctx context.Context, loanType model.LoanType, fileType model.FileType, rows []validate.Row) error {
	return f.store.StoreFailedRows(ctx, f.tenantID, loanType, fileType, rows)
}

// ClearFailed drops the failed-row list for one file type.
func (f *Fetcher) ClearFailed(ctx context.Context, loanType model.LoanType, fileType model.FileType) error {
	return f.store.ClearFailed(ctx, f.tenantID, loanType, fileType)
}

// ClearUpload drops the consumed upload data for one file type.
func (f *Fetcher) ClearUpload(ctx context.Context, loanType model.LoanType, fileType model.FileType) error {
	return f.store.ClearUpload(ctx, f.tenantID, loanType, fileType)
}
