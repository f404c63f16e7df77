// Package model defines the persistent records shared by the sync engine,
// the metadata store and the CLI: sync logs, sync configurations and
// validation error descriptors.
package model

import (
	"time"

	"github.com/google/uuid"
)

// LoanType partitions all warehouse data.
type LoanType string

const (
	LoanTypeRetail     LoanType = "RETAIL"
	LoanTypeCommercial LoanType = "COMMERCIAL"
)

// Valid reports whether lt is one of the known loan types.
func (lt LoanType) Valid() bool {
	return lt == LoanTypeRetail || lt == LoanTypeCommercial
}

// FileType identifies one of the two staged datasets.
type FileType string

const (
	FileTypeCredit  FileType = "credit"
	FileTypePayment FileType = "payment_plan"
)

// SyncStatus is the sync log state machine. STARTED through STORING are
// progress states; COMPLETED and FAILED are terminal.
type SyncStatus string

const (
	StatusStarted     SyncStatus = "STARTED"
	StatusFetching    SyncStatus = "FETCHING"
	StatusValidating  SyncStatus = "VALIDATING"
	StatusNormalizing SyncStatus = "NORMALIZING"
	StatusStoring     SyncStatus = "STORING"
	StatusCompleted   SyncStatus = "COMPLETED"
	StatusFailed      SyncStatus = "FAILED"
)

// Terminal reports whether the status ends the sync log's lifecycle.
func (s SyncStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorSummary maps error kinds ("field:TYPE") to occurrence counts. The
// abort and exception paths add the string-valued "reason" and "exception"
// keys, so values are deliberately untyped.
type ErrorSummary map[string]any

// Merge adds the integer-valued counts of other into s.
func (s ErrorSummary) Merge(other map[string]int) {
	for k, n := range other {
		if prev, ok := s[k].(int); ok {
			s[k] = prev + n
		} else {
			s[k] = n
		}
	}
}

// SyncLog records one sync invocation. Created at entry with StatusStarted,
// mutated only by the engine, terminal on COMPLETED or FAILED.
type SyncLog struct {
	ID               uuid.UUID
	LoanType         LoanType
	BatchID          uuid.UUID
	Status           SyncStatus
	TotalCreditRows  int
	TotalPaymentRows int
	ValidCreditRows  int
	ValidPaymentRows int
	ErrorCount       int
	ErrorSummary     ErrorSummary
	StartedAt        time.Time
	CompletedAt      *time.Time
}

// NewSyncLog opens a log for one invocation with fresh identifiers.
func NewSyncLog(loanType LoanType, batchID uuid.UUID) *SyncLog {
	return &SyncLog{
		ID:           uuid.New(),
		LoanType:     loanType,
		BatchID:      batchID,
		Status:       StatusStarted,
		ErrorSummary: ErrorSummary{},
		StartedAt:    time.Now().UTC(),
	}
}

// SyncConfiguration holds per-loan-type sync settings in the tenant's
// metadata schema.
type SyncConfiguration struct {
	LoanType            LoanType
	ExternalBankURL     string
	SyncIntervalMinutes int
	IsEnabled           bool
	LastSyncAt          *time.Time
	LastSyncStatus      string
}

// ValidationError is one persisted field-level error descriptor. RawValue is
// the offending input verbatim; empty means the field was absent.
type ValidationError struct {
	SyncLogID uuid.UUID
	RowNumber int
	FileType  FileType
	FieldName string
	ErrorType string
	Message   string
	RawValue  string
}
