// Package loader reads bank CSV exports into the staging store. Files are
// semicolon-delimited with a header row naming the fields.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
	"github.com/izgi-a/findata-adapter/internal/extbank/staging"
)

// pushBatchSize bounds rows held in memory between store writes.
const pushBatchSize = 5000

// Loader streams CSV rows into the staging store.
type Loader struct {
	store  *staging.Store
	logger zerolog.Logger
}

// New creates a loader over the shared staging store.
func New(store *staging.Store, logger zerolog.Logger) *Loader {
	return &Loader{store: store, logger: logger.With().Str("component", "csv-loader").Logger()}
}

// LoadFile appends the file's rows to the tenant's staged upload and returns
// the number of rows loaded.
func (l *Loader) LoadFile(ctx context.Context, tenantID string, loanType model.LoanType, fileType model.FileType, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	total := 0
	batch := make([]validate.Row, 0, pushBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.store.StoreRows(ctx, tenantID, loanType, fileType, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read csv row: %w", err)
		}
		row := make(validate.Row, len(header))
		for i, field := range header {
			row[field] = record[i]
		}
		batch = append(batch, row)
		if len(batch) >= pushBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	l.logger.Info().
		Str("tenant", tenantID).
		Str("loan_type", string(loanType)).
		Str("file_type", string(fileType)).
		Int("rows", total).
		Str("file", path).
		Msg("csv loaded into staging store")
	return total, nil
}
