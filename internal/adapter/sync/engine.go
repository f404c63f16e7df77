package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/telemetry"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
	"github.com/izgi-a/findata-adapter/internal/adapter/warehouse"
	"github.com/izgi-a/findata-adapter/internal/tenant"
)

// MaxFailedRows caps raw failed rows buffered per file type so memory stays
// bounded regardless of dataset size.
const MaxFailedRows = 10_000

// DefaultMaxErrorRate aborts the sync when more than half of all rows are
// invalid.
const DefaultMaxErrorRate = 0.50

// DefaultLockPollInterval is the wait between lock retries when
// waitForLock is set.
const DefaultLockPollInterval = 2 * time.Second

// errErrorRateExceeded routes the pipeline onto the abort path.
var errErrorRateExceeded = errors.New("error rate exceeds threshold")

// StagingInput is the upload store contract the engine consumes: O(1) row
// counts, single-pass chunked iteration, failed-row capture and upload
// cleanup.
type StagingInput interface {
	RowCount(ctx context.Context, loanType model.LoanType, fileType model.FileType) (int, error)
	Iterate(loanType model.LoanType, fileType model.FileType) RowIterator
	StoreFailedRows(ctx context.Context, loanType model.LoanType, fileType model.FileType, rows []validate.Row) error
	ClearFailed(ctx context.Context, loanType model.LoanType, fileType model.FileType) error
	ClearUpload(ctx context.Context, loanType model.LoanType, fileType model.FileType) error
}

// Warehouse is the analytic store contract: staging loads and the atomic
// partition swap.
type Warehouse interface {
	TruncateStaging(ctx context.Context, fileType model.FileType) error
	InsertStagingCredits(ctx context.Context, rows []warehouse.CreditRow) error
	InsertStagingPayments(ctx context.Context, rows []warehouse.PaymentRow) error
	ReplacePartition(ctx context.Context, fileType model.FileType, loanType model.LoanType) error
	DistinctLoanIDs(ctx context.Context, loanType model.LoanType) ([]string, error)
}

// MetaStore persists sync logs, validation errors and configuration stamps.
type MetaStore interface {
	CreateSyncLog(ctx context.Context, log *model.SyncLog) error
	UpdateSyncStatus(ctx context.Context, id uuid.UUID, status model.SyncStatus) error
	UpdateSyncTotals(ctx context.Context, id uuid.UUID, totalCredit, totalPayment int) error
	FinishSyncLog(ctx context.Context, log *model.SyncLog) error
	BulkInsertValidationErrors(ctx context.Context, logID uuid.UUID, fileType model.FileType, errors []validate.FieldError) error
	StampSyncConfiguration(ctx context.Context, loanType model.LoanType, status model.SyncStatus, at time.Time) error
}

// Locker serializes syncs per (tenant, loan_type).
type Locker interface {
	Acquire(ctx context.Context, tenantID string, loanType model.LoanType, token string) (bool, error)
	Release(ctx context.Context, tenantID string, loanType model.LoanType) error
	TTL() time.Duration
}

// Caches covers the existing-loan lookup cache and post-sync invalidation.
type Caches interface {
	GetExistingLoans(ctx context.Context, tenantID string, loanType model.LoanType) ([]string, bool)
	SetExistingLoans(ctx context.Context, tenantID string, loanType model.LoanType, ids []string)
	InvalidateAfterSync(ctx context.Context, tenantID string, loanType model.LoanType)
}

// Options tunes the engine.
type Options struct {
	MaxErrorRate     float64
	LockPollInterval time.Duration
}

// Engine orchestrates the sync pipeline for one tenant.
type Engine struct {
	tenant    tenant.Tenant
	staging   StagingInput
	warehouse Warehouse
	meta      MetaStore
	locker    Locker
	caches    Caches
	metrics   *telemetry.Metrics
	opts      Options
	logger    zerolog.Logger

	creditValidator  validate.CreditValidator
	paymentValidator validate.PaymentValidator
}

// NewEngine wires the engine from its collaborators. Zero option fields take
// defaults.
func NewEngine(t tenant.Tenant, staging StagingInput, wh Warehouse, meta MetaStore,
	locker Locker, caches Caches, metrics *telemetry.Metrics, opts Options, logger zerolog.Logger) *Engine {
	if opts.MaxErrorRate <= 0 {
		opts.MaxErrorRate = DefaultMaxErrorRate
	}
	if opts.LockPollInterval <= 0 {
		opts.LockPollInterval = DefaultLockPollInterval
	}
	return &Engine{
		tenant:    t,
		staging:   staging,
		warehouse: wh,
		meta:      meta,
		locker:    locker,
		caches:    caches,
		metrics:   metrics,
		opts:      opts,
		logger:    logger.With().Str("component", "sync-engine").Str("tenant", t.TenantID).Logger(),
	}
}

// runState accumulates per-invocation counters and bounded buffers.
type runState struct {
	credit  validate.BatchResult
	payment validate.BatchResult

	failedCredit  []validate.Row
	failedPayment []validate.Row

	errorTypes map[string]int
	batchLoans validate.LoanSet
}

func newRunState() *runState {
	return &runState{
		errorTypes: make(map[string]int),
		batchLoans: validate.LoanSet{},
	}
}

func (st *runState) noteErrors(errs []validate.FieldError) {
	for _, e := range errs {
		st.errorTypes[e.ErrorType]++
	}
}

// Sync executes the full pipeline for one loan type and always returns a
// terminal sync log; internal failures are captured as StatusFailed, never
// propagated.
func (e *Engine) Sync(ctx context.Context, loanType model.LoanType, waitForLock bool) *model.SyncLog {
	start := time.Now()
	batchID := uuid.New()
	syncLog := model.NewSyncLog(loanType, batchID)
	logger := e.logger.With().
		Str("loan_type", string(loanType)).
		Str("batch_id", batchID.String()).
		Logger()

	acquired, lockErr := e.acquireLock(ctx, loanType, batchID.String(), waitForLock)
	if lockErr != nil || !acquired {
		if lockErr != nil {
			logger.Error().Err(lockErr).Msg("lock acquisition failed")
		} else {
			logger.Warn().Msg("sync already in progress")
		}
		e.closeContended(ctx, syncLog, logger)
		e.observe(syncLog, start)
		return syncLog
	}
	defer func() {
		if err := e.locker.Release(ctx, e.tenant.TenantID, loanType); err != nil {
			logger.Warn().Err(err).Msg("lock release failed")
		}
	}()

	if err := e.meta.CreateSyncLog(ctx, syncLog); err != nil {
		logger.Error().Err(err).Msg("cannot open sync log")
		now := time.Now().UTC()
		syncLog.Status = model.StatusFailed
		syncLog.ErrorSummary = model.ErrorSummary{"exception": err.Error()}
		syncLog.CompletedAt = &now
		e.observe(syncLog, start)
		return syncLog
	}

	st := newRunState()
	runErr := e.run(ctx, syncLog, st, logger)

	now := time.Now().UTC()
	syncLog.CompletedAt = &now
	syncLog.ValidCreditRows = st.credit.ValidRows
	syncLog.ValidPaymentRows = st.payment.ValidRows
	syncLog.ErrorCount = st.credit.ErrorCount + st.payment.ErrorCount

	persistDiag := true
	switch {
	case runErr == nil:
		syncLog.Status = model.StatusCompleted
		syncLog.ErrorSummary.Merge(st.credit.Summary())
		syncLog.ErrorSummary.Merge(st.payment.Summary())
	case errors.Is(runErr, errErrorRateExceeded):
		syncLog.Status = model.StatusFailed
		syncLog.ErrorSummary.Merge(st.credit.Summary())
		syncLog.ErrorSummary.Merge(st.payment.Summary())
		syncLog.ErrorSummary["reason"] = "Error rate exceeds 50%. Aborting sync, old data preserved."
		logger.Warn().
			Int("error_count", syncLog.ErrorCount).
			Msg("sync aborted, old data preserved")
	default:
		// Leave the upload data in place so the next run can retry it.
		persistDiag = false
		syncLog.Status = model.StatusFailed
		syncLog.ErrorSummary = model.ErrorSummary{"exception": runErr.Error()}
		e.truncateStagingBestEffort(ctx, logger)
		logger.Error().Err(runErr).Msg("sync failed")
	}

	if err := e.meta.FinishSyncLog(ctx, syncLog); err != nil {
		logger.Error().Err(err).Msg("cannot finalize sync log")
	}
	if persistDiag {
		e.persistDiagnostics(ctx, syncLog, st, logger)
	}
	if err := e.meta.StampSyncConfiguration(ctx, loanType, syncLog.Status, now); err != nil {
		logger.Warn().Err(err).Msg("cannot stamp sync configuration")
	}
	e.caches.InvalidateAfterSync(ctx, e.tenant.TenantID, loanType)
	e.observeErrors(st)
	e.observe(syncLog, start)

	logger.Info().
		Str("status", string(syncLog.Status)).
		Int("valid_credit", syncLog.ValidCreditRows).
		Int("total_credit", syncLog.TotalCreditRows).
		Int("valid_payment", syncLog.ValidPaymentRows).
		Int("total_payment", syncLog.TotalPaymentRows).
		Int("errors", syncLog.ErrorCount).
		Msg("sync finished")
	return syncLog
}

// closeContended records the fast-failure log for a lock that could not be
// taken.
func (e *Engine) closeContended(ctx context.Context, syncLog *model.SyncLog, logger zerolog.Logger) {
	now := time.Now().UTC()
	syncLog.Status = model.StatusFailed
	syncLog.ErrorSummary["reason"] = "Concurrent sync in progress"
	syncLog.CompletedAt = &now
	if err := e.meta.CreateSyncLog(ctx, syncLog); err != nil {
		logger.Error().Err(err).Msg("cannot open sync log")
		return
	}
	if err := e.meta.FinishSyncLog(ctx, syncLog); err != nil {
		logger.Error().Err(err).Msg("cannot finalize sync log")
	}
}

func (e *Engine) acquireLock(ctx context.Context, loanType model.LoanType, token string, wait bool) (bool, error) {
	ok, err := e.locker.Acquire(ctx, e.tenant.TenantID, loanType, token)
	if err != nil || ok {
		return ok, err
	}
	if !wait {
		return false, nil
	}

	deadline := time.Now().Add(e.locker.TTL())
	ticker := time.NewTicker(e.opts.LockPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return false, nil
			}
			ok, err := e.locker.Acquire(ctx, e.tenant.TenantID, loanType, token)
			if err != nil || ok {
				return ok, err
			}
		}
	}
}

// run drives the pipeline phases. It returns errErrorRateExceeded on the
// abort path and any other error on the exception path.
func (e *Engine) run(ctx context.Context, syncLog *model.SyncLog, st *runState, logger zerolog.Logger) error {
	if err := e.transition(ctx, syncLog, model.StatusFetching); err != nil {
		return err
	}
	totalCredit, err := e.staging.RowCount(ctx, syncLog.LoanType, model.FileTypeCredit)
	if err != nil {
		return fmt.Errorf("count credit rows: %w", err)
	}
	totalPayment, err := e.staging.RowCount(ctx, syncLog.LoanType, model.FileTypePayment)
	if err != nil {
		return fmt.Errorf("count payment rows: %w", err)
	}
	syncLog.TotalCreditRows = totalCredit
	syncLog.TotalPaymentRows = totalPayment
	if err := e.meta.UpdateSyncTotals(ctx, syncLog.ID, totalCredit, totalPayment); err != nil {
		return err
	}

	if err := e.runCreditPhase(ctx, syncLog, st); err != nil {
		return err
	}
	if err := e.runPaymentPhase(ctx, syncLog, st, logger); err != nil {
		return err
	}

	total := totalCredit + totalPayment
	invalid := total - st.credit.ValidRows - st.payment.ValidRows
	if total > 0 && float64(invalid)/float64(total) > e.opts.MaxErrorRate {
		e.truncateStagingBestEffort(ctx, logger)
		return errErrorRateExceeded
	}

	// Commit. Zero-row staging issues no partition replace so unrelated
	// partitions are never wiped by an empty upload.
	if st.credit.ValidRows > 0 {
		if err := e.warehouse.ReplacePartition(ctx, model.FileTypeCredit, syncLog.LoanType); err != nil {
			return err
		}
		e.metrics.RowsInserted.WithLabelValues(e.tenant.TenantID, "fact_credit").Add(float64(st.credit.ValidRows))
	}
	if st.payment.ValidRows > 0 {
		if err := e.warehouse.ReplacePartition(ctx, model.FileTypePayment, syncLog.LoanType); err != nil {
			return err
		}
		e.metrics.RowsInserted.WithLabelValues(e.tenant.TenantID, "fact_payment").Add(float64(st.payment.ValidRows))
	}
	if err := e.warehouse.TruncateStaging(ctx, model.FileTypeCredit); err != nil {
		return err
	}
	return e.warehouse.TruncateStaging(ctx, model.FileTypePayment)
}

func (e *Engine) runCreditPhase(ctx context.Context, syncLog *model.SyncLog, st *runState) error {
	if err := e.warehouse.TruncateStaging(ctx, model.FileTypeCredit); err != nil {
		return err
	}

	it := e.staging.Iterate(syncLog.LoanType, model.FileTypeCredit)
	rowNumber := 0
	for {
		chunk, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("read credit chunk: %w", err)
		}
		if chunk == nil {
			break
		}
		if err := e.transition(ctx, syncLog, model.StatusValidating); err != nil {
			return err
		}

		valid := make([]validate.Row, 0, len(chunk))
		for _, row := range chunk {
			rowNumber++
			rr := e.creditValidator.ValidateRow(row, rowNumber, syncLog.LoanType)
			st.credit.Add(&rr)
			if rr.Valid() {
				st.batchLoans.Add(row["loan_account_number"])
				valid = append(valid, row)
				continue
			}
			st.noteErrors(rr.Errors)
			if len(st.failedCredit) < MaxFailedRows {
				st.failedCredit = append(st.failedCredit, row)
			}
		}
		if len(valid) == 0 {
			continue
		}

		if err := e.transition(ctx, syncLog, model.StatusNormalizing); err != nil {
			return err
		}
		loadedAt := time.Now().UTC()
		rows := make([]warehouse.CreditRow, 0, len(valid))
		for _, row := range valid {
			rows = append(rows, warehouse.MarshalCredit(row, syncLog.LoanType, syncLog.BatchID.String(), loadedAt))
		}

		if err := e.transition(ctx, syncLog, model.StatusStoring); err != nil {
			return err
		}
		if err := e.warehouse.InsertStagingCredits(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runPaymentPhase(ctx context.Context, syncLog *model.SyncLog, st *runState, logger zerolog.Logger) error {
	if err := e.warehouse.TruncateStaging(ctx, model.FileTypePayment); err != nil {
		return err
	}

	known := e.knownLoans(ctx, syncLog.LoanType, st, logger)

	it := e.staging.Iterate(syncLog.LoanType, model.FileTypePayment)
	rowNumber := 0
	for {
		chunk, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("read payment chunk: %w", err)
		}
		if chunk == nil {
			break
		}
		if err := e.transition(ctx, syncLog, model.StatusValidating); err != nil {
			return err
		}

		valid := make([]validate.Row, 0, len(chunk))
		for _, row := range chunk {
			rowNumber++
			rr := e.paymentValidator.ValidateRow(row, rowNumber, syncLog.LoanType)
			if rr.Valid() {
				validate.CrossCheck(&rr, row, known)
			}
			st.payment.Add(&rr)
			if rr.Valid() {
				valid = append(valid, row)
				continue
			}
			st.noteErrors(rr.Errors)
			if len(st.failedPayment) < MaxFailedRows {
				st.failedPayment = append(st.failedPayment, row)
			}
		}
		if len(valid) == 0 {
			continue
		}

		if err := e.transition(ctx, syncLog, model.StatusNormalizing); err != nil {
			return err
		}
		loadedAt := time.Now().UTC()
		rows := make([]warehouse.PaymentRow, 0, len(valid))
		for _, row := range valid {
			rows = append(rows, warehouse.MarshalPayment(row, syncLog.LoanType, syncLog.BatchID.String(), loadedAt))
		}

		if err := e.transition(ctx, syncLog, model.StatusStoring); err != nil {
			return err
		}
		if err := e.warehouse.InsertStagingPayments(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

// knownLoans materializes batch credits plus the already committed partition.
// A failed warehouse read degrades to batch-only matching with a warning so
// the sync can still make progress.
func (e *Engine) knownLoans(ctx context.Context, loanType model.LoanType, st *runState, logger zerolog.Logger) validate.LoanSet {
	known := validate.LoanSet{}.Union(st.batchLoans)

	ids, ok := e.caches.GetExistingLoans(ctx, e.tenant.TenantID, loanType)
	if !ok {
		var err error
		ids, err = e.warehouse.DistinctLoanIDs(ctx, loanType)
		if err != nil {
			logger.Warn().Err(err).
				Msg("existing loan lookup failed, cross-validation uses batch credits only")
			return known
		}
		e.caches.SetExistingLoans(ctx, e.tenant.TenantID, loanType, ids)
	}
	for _, id := range ids {
		known.Add(id)
	}
	return known
}

// transition persists a state machine step; repeating the current state is a
// no-op.
func (e *Engine) transition(ctx context.Context, syncLog *model.SyncLog, status model.SyncStatus) error {
	if syncLog.Status == status {
		return nil
	}
	syncLog.Status = status
	if err := e.meta.UpdateSyncStatus(ctx, syncLog.ID, status); err != nil {
		return fmt.Errorf("persist status %s: %w", status, err)
	}
	return nil
}

func (e *Engine) truncateStagingBestEffort(ctx context.Context, logger zerolog.Logger) {
	for _, ft := range []model.FileType{model.FileTypeCredit, model.FileTypePayment} {
		if err := e.warehouse.TruncateStaging(ctx, ft); err != nil {
			logger.Warn().Err(err).Str("file_type", string(ft)).Msg("staging truncate failed")
		}
	}
}

// persistDiagnostics bulk-saves error descriptors, moves failed raw rows to
// the failed store and clears consumed uploads.
func (e *Engine) persistDiagnostics(ctx context.Context, syncLog *model.SyncLog, st *runState, logger zerolog.Logger) {
	if len(st.credit.Errors) > 0 {
		if err := e.meta.BulkInsertValidationErrors(ctx, syncLog.ID, model.FileTypeCredit, st.credit.Errors); err != nil {
			logger.Error().Err(err).Msg("cannot persist credit validation errors")
		}
	}
	if len(st.payment.Errors) > 0 {
		if err := e.meta.BulkInsertValidationErrors(ctx, syncLog.ID, model.FileTypePayment, st.payment.Errors); err != nil {
			logger.Error().Err(err).Msg("cannot persist payment validation errors")
		}
	}

	e.cleanupUpload(ctx, syncLog.LoanType, model.FileTypeCredit, syncLog.TotalCreditRows, st.credit.ErrorCount, st.failedCredit, logger)
	e.cleanupUpload(ctx, syncLog.LoanType, model.FileTypePayment, syncLog.TotalPaymentRows, st.payment.ErrorCount, st.failedPayment, logger)
}

func (e *Engine) cleanupUpload(ctx context.Context, loanType model.LoanType, fileType model.FileType,
	totalRows, errorCount int, failed []validate.Row, logger zerolog.Logger) {
	if totalRows == 0 {
		return
	}
	if err := e.staging.ClearUpload(ctx, loanType, fileType); err != nil {
		logger.Warn().Err(err).Str("file_type", string(fileType)).Msg("cannot clear upload")
	}
	if errorCount > 0 {
		if err := e.staging.StoreFailedRows(ctx, loanType, fileType, failed); err != nil {
			logger.Warn().Err(err).Str("file_type", string(fileType)).Msg("cannot store failed rows")
			return
		}
		logger.Info().
			Str("file_type", string(fileType)).
			Int("rows", len(failed)).
			Msg("failed rows moved to failed store")
		return
	}
	if err := e.staging.ClearFailed(ctx, loanType, fileType); err != nil {
		logger.Warn().Err(err).Str("file_type", string(fileType)).Msg("cannot clear failed rows")
	}
}

func (e *Engine) observe(syncLog *model.SyncLog, start time.Time) {
	e.metrics.SyncOperations.
		WithLabelValues(e.tenant.TenantID, string(syncLog.LoanType), string(syncLog.Status)).
		Inc()
	e.metrics.SyncDuration.
		WithLabelValues(e.tenant.TenantID, string(syncLog.LoanType)).
		Observe(time.Since(start).Seconds())
}

func (e *Engine) observeErrors(st *runState) {
	for errType, n := range st.errorTypes {
		e.metrics.ValidationErrors.
			WithLabelValues(e.tenant.TenantID, errType).
			Add(float64(n))
	}
}
