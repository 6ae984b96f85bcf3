package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/symphonia/tms-sync/internal/carriersync"
	"github.com/symphonia/tms-sync/internal/models"
)

// SyncTrigger starts a sync run for one connection.
type SyncTrigger interface {
	Run(ctx context.Context, tmsType string) (*models.SyncRun, error)
}

// ConnectionLister enumerates connections eligible for automatic syncing.
type ConnectionLister interface {
	ListActive(ctx context.Context) ([]models.TMSConnection, error)
}

// SyncScheduler triggers automatic sync runs for active connections whose
// configured interval has elapsed.
type SyncScheduler struct {
	connections   ConnectionLister
	trigger       SyncTrigger
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration

	now func() time.Time
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(
	connections ConnectionLister,
	trigger SyncTrigger,
	logger *slog.Logger,
) *SyncScheduler {
	return &SyncScheduler{
		connections:   connections,
		trigger:       trigger,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Minute,
		now:           time.Now,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *SyncScheduler) Start(ctx context.Context) {
	s.logger.Info("starting sync scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.checkAndRunSyncs(ctx)

	for {
		select {
		case <-ticker.C:
			s.checkAndRunSyncs(ctx)
		case <-s.stopChan:
			s.logger.Info("sync scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

// checkAndRunSyncs triggers a run for every connection that is due.
func (s *SyncScheduler) checkAndRunSyncs(ctx context.Context) {
	connections, err := s.connections.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active connections", "error", err)
		return
	}

	for _, conn := range connections {
		if !s.isDue(&conn) {
			continue
		}

		s.logger.Info("triggering scheduled sync",
			"tms_type", conn.TMSType,
			"last_sync_at", conn.LastSyncAt,
			"sync_interval_minutes", conn.SyncConfig.SyncInterval,
		)

		run, err := s.trigger.Run(ctx, conn.TMSType)
		if err != nil {
			// A run already in flight is not a fault, just not due anymore.
			if errors.Is(err, carriersync.ErrSyncInProgress) {
				s.logger.Debug("sync already in progress, skipping", "tms_type", conn.TMSType)
				continue
			}
			s.logger.Error("scheduled sync failed to start",
				"tms_type", conn.TMSType, "error", err)
			continue
		}

		s.logger.Info("scheduled sync finished",
			"tms_type", conn.TMSType,
			"run_id", run.ID,
			"status", run.Status,
		)
	}
}

// isDue reports whether a connection should sync now. Auth failures suspend
// automatic runs until the credentials are updated.
func (s *SyncScheduler) isDue(conn *models.TMSConnection) bool {
	if !conn.SyncConfig.AutoSync {
		return false
	}
	if conn.LastSyncStatus == models.SyncStatusAuthError {
		return false
	}

	interval := conn.SyncConfig.SyncInterval
	if interval <= 0 {
		interval = models.DefaultSyncInterval
	}

	if conn.LastSyncAt == nil {
		return true
	}
	return s.now().Sub(*conn.LastSyncAt) >= time.Duration(interval)*time.Minute
}
