package carriersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/symphonia/tms-sync/internal/models"
	"github.com/symphonia/tms-sync/internal/tms"
)

// PageFetcher retrieves one page of raw provider records. The TMS client
// implements it; tests substitute stubs.
type PageFetcher interface {
	FetchPage(ctx context.Context, conn *models.TMSConnection, page, pageSize int) (*tms.Page, error)
}

// RunObserver receives finished runs, for metrics emission.
type RunObserver interface {
	ObserveRun(run *models.SyncRun)
}

// Orchestrator drives end-to-end sync runs: it reads connection state,
// loops the fetch-classify-reconcile pipeline until exhaustion or a cap,
// and records run statistics. At most one run executes per tmsType at a
// time; runs for distinct tmsTypes proceed concurrently.
type Orchestrator struct {
	connections ConnectionStore
	runs        RunStore
	fetcher     PageFetcher
	classifier  Classifier
	reconciler  *Reconciler
	observer    RunObserver
	logger      *slog.Logger
	pageSize    int

	mu     sync.Mutex
	active map[string]bool
}

// NewOrchestrator wires a sync orchestrator. observer may be nil.
func NewOrchestrator(
	connections ConnectionStore,
	runs RunStore,
	fetcher PageFetcher,
	classifier Classifier,
	reconciler *Reconciler,
	observer RunObserver,
	pageSize int,
	logger *slog.Logger,
) *Orchestrator {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &Orchestrator{
		connections: connections,
		runs:        runs,
		fetcher:     fetcher,
		classifier:  classifier,
		reconciler:  reconciler,
		observer:    observer,
		logger:      logger,
		pageSize:    pageSize,
		active:      make(map[string]bool),
	}
}

// IsRunning reports whether a run is currently executing for the tmsType.
func (o *Orchestrator) IsRunning(tmsType string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[tmsType]
}

// Run executes one sync run for the tmsType and returns its summary.
// It refuses before any network call when no connection is configured,
// the connection is inactive, or a run is already in flight for the same
// tmsType.
func (o *Orchestrator) Run(ctx context.Context, tmsType string) (*models.SyncRun, error) {
	conn, err := o.connections.Get(ctx, tmsType)
	if err != nil {
		return nil, fmt.Errorf("load connection %s: %w", tmsType, err)
	}
	if conn == nil {
		return nil, ErrConfigurationMissing
	}
	if !conn.IsActive {
		return nil, ErrConnectionInactive
	}

	if !o.acquire(tmsType) {
		return nil, ErrSyncInProgress
	}
	defer o.release(tmsType)

	run := &models.SyncRun{
		ID:        uuid.NewString(),
		TMSType:   tmsType,
		Status:    models.SyncRunStatusRunning,
		StartedAt: time.Now(),
	}

	o.logger.Info("sync run started",
		"tms_type", tmsType,
		"run_id", run.ID,
		"max_pages", o.maxPages(conn),
		"page_size", o.pageSize,
	)

	syncStatus := o.executePipeline(ctx, conn, run)
	o.finish(ctx, conn, run, syncStatus)

	return run, nil
}

// executePipeline walks the provider pages and reconciles accepted records.
// It returns the connection-level status the run should record.
func (o *Orchestrator) executePipeline(ctx context.Context, conn *models.TMSConnection, run *models.SyncRun) models.SyncStatus {
	maxPages := o.maxPages(conn)
	itemLimit := conn.SyncConfig.TransportLimit

	accepted := 0
	// Dispositions already counted this run, keyed by external id. A record
	// re-seen on a later page keeps a single counter entry, under its final
	// disposition.
	reconciled := make(map[string]Outcome)

	for page := 1; ; page++ {
		// Cancellation is observed only between pages so a fetched page is
		// never left half-reconciled.
		select {
		case <-ctx.Done():
			run.RecordError("", fmt.Errorf("sync cancelled: %w", ctx.Err()))
			if run.PagesFetched == 0 {
				run.Status = models.SyncRunStatusFailed
				return models.SyncStatusError
			}
			run.Status = models.SyncRunStatusCompleted
			return models.SyncStatusSuccess
		default:
		}

		if run.PagesFetched >= maxPages {
			o.logger.Warn("page cap reached, stopping run",
				"tms_type", conn.TMSType, "run_id", run.ID, "max_pages", maxPages)
			break
		}

		result, err := o.fetcher.FetchPage(ctx, conn, page, o.pageSize)
		if err != nil {
			return o.handleFetchError(conn, run, err)
		}
		run.PagesFetched++

		for _, company := range result.Results {
			run.RecordsSeen++

			if !o.classifier.Accept(company) {
				run.RecordsFiltered++
				continue
			}

			outcome, err := o.reconciler.Reconcile(ctx, tms.MapCompany(company, conn.TMSType))
			if err != nil {
				// One bad record must not abort the run.
				var recErr *ReconcileError
				if errors.As(err, &recErr) {
					run.RecordError(recErr.ExternalID, recErr.Err)
				} else {
					run.RecordError(company.ExternalID(), err)
				}
				o.logger.Error("reconciliation failed",
					"tms_type", conn.TMSType, "run_id", run.ID,
					"external_id", company.ExternalID(), "error", err)
				continue
			}

			id := company.ExternalID()
			prev, countedBefore := reconciled[id]
			switch {
			case !countedBefore && outcome == OutcomeCreated:
				run.RecordsCreated++
			case !countedBefore:
				run.RecordsUpdated++
			case prev == OutcomeCreated && outcome == OutcomeUpdated:
				run.RecordsCreated--
				run.RecordsUpdated++
			}
			reconciled[id] = outcome

			accepted++
			if itemLimit > 0 && accepted >= itemLimit {
				o.logger.Info("item limit reached, stopping run",
					"tms_type", conn.TMSType, "run_id", run.ID, "limit", itemLimit)
				run.Status = models.SyncRunStatusCompleted
				return models.SyncStatusSuccess
			}
		}

		if !result.HasNext {
			break
		}
	}

	run.Status = models.SyncRunStatusCompleted
	return models.SyncStatusSuccess
}

// handleFetchError routes a page-fetch failure: a first-page failure fails
// the run, a later-page failure truncates it with partial results. An auth
// rejection additionally suspends auto-sync until credentials change.
func (o *Orchestrator) handleFetchError(conn *models.TMSConnection, run *models.SyncRun, err error) models.SyncStatus {
	run.RecordError("", err)

	var authErr *tms.AuthRejectedError
	isAuth := errors.As(err, &authErr)

	if run.PagesFetched == 0 {
		o.logger.Error("sync run failed on first page",
			"tms_type", conn.TMSType, "run_id", run.ID, "error", err)
		run.Status = models.SyncRunStatusFailed
		if isAuth {
			return models.SyncStatusAuthError
		}
		return models.SyncStatusError
	}

	o.logger.Warn("sync run truncated after fetch error",
		"tms_type", conn.TMSType, "run_id", run.ID,
		"pages_fetched", run.PagesFetched, "error", err)
	run.Status = models.SyncRunStatusCompleted
	if isAuth {
		return models.SyncStatusAuthError
	}
	return models.SyncStatusSuccess
}

// finish closes out the run: timestamps, summary message, persistence,
// connection bookkeeping and metrics.
func (o *Orchestrator) finish(ctx context.Context, conn *models.TMSConnection, run *models.SyncRun, syncStatus models.SyncStatus) {
	now := time.Now()
	run.FinishedAt = &now

	if run.Status == models.SyncRunStatusFailed && len(run.Errors) > 0 {
		run.ErrorMessage = fmt.Sprintf("%d error(s); first: %s", len(run.Errors), run.Errors[0].Message)
	}

	result := models.RunResult{
		Status:       syncStatus,
		CarrierCount: run.RecordsCreated + run.RecordsUpdated,
		FinishedAt:   now,
	}
	if syncStatus != models.SyncStatusSuccess && len(run.Errors) > 0 {
		result.ErrorMessage = run.Errors[0].Message
	}

	if err := o.connections.RecordRunResult(ctx, conn.TMSType, result); err != nil {
		o.logger.Error("failed to record run result on connection",
			"tms_type", conn.TMSType, "run_id", run.ID, "error", err)
	}

	if err := o.runs.Save(ctx, run); err != nil {
		o.logger.Error("failed to persist sync run",
			"tms_type", conn.TMSType, "run_id", run.ID, "error", err)
	}

	if o.observer != nil {
		o.observer.ObserveRun(run)
	}

	o.logger.Info("sync run finished",
		"tms_type", conn.TMSType,
		"run_id", run.ID,
		"status", run.Status,
		"pages_fetched", run.PagesFetched,
		"records_seen", run.RecordsSeen,
		"records_filtered", run.RecordsFiltered,
		"records_created", run.RecordsCreated,
		"records_updated", run.RecordsUpdated,
		"errors", len(run.Errors),
		"duration", now.Sub(run.StartedAt),
	)
}

func (o *Orchestrator) maxPages(conn *models.TMSConnection) int {
	if conn.SyncConfig.MaxPages > 0 {
		return conn.SyncConfig.MaxPages
	}
	return models.DefaultMaxPages
}

func (o *Orchestrator) acquire(tmsType string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[tmsType] {
		return false
	}
	o.active[tmsType] = true
	return true
}

func (o *Orchestrator) release(tmsType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, tmsType)
}
