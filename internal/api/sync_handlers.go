package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/symphonia/tms-sync/internal/carriersync"
	"github.com/symphonia/tms-sync/internal/models"
	"github.com/symphonia/tms-sync/internal/tms"
)

// SyncRunner triggers sync runs and reports in-flight state.
type SyncRunner interface {
	Run(ctx context.Context, tmsType string) (*models.SyncRun, error)
	IsRunning(tmsType string) bool
}

// ConnectionProber checks provider reachability with the stored credentials.
type ConnectionProber interface {
	Probe(ctx context.Context, conn *models.TMSConnection) error
}

// SyncHandler handles sync trigger, status and history requests
type SyncHandler struct {
	connections carriersync.ConnectionStore
	runs        carriersync.RunStore
	runner      SyncRunner
	prober      ConnectionProber
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(
	connections carriersync.ConnectionStore,
	runs carriersync.RunStore,
	runner SyncRunner,
	prober ConnectionProber,
	logger *slog.Logger,
) *SyncHandler {
	return &SyncHandler{
		connections: connections,
		runs:        runs,
		runner:      runner,
		prober:      prober,
		logger:      logger,
	}
}

// Trigger handles POST /api/connections/:tmsType/sync. The run executes
// synchronously; refusals are reported before any provider traffic.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	tmsType := tmsTypeFromPath(r.URL.Path)
	if err := ValidateTMSType(tmsType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.runner.Run(r.Context(), tmsType)
	if err != nil {
		switch {
		case errors.Is(err, carriersync.ErrConfigurationMissing):
			http.Error(w, "Connection not configured", http.StatusNotFound)
		case errors.Is(err, carriersync.ErrConnectionInactive):
			http.Error(w, "Connection is inactive", http.StatusConflict)
		case errors.Is(err, carriersync.ErrSyncInProgress):
			http.Error(w, "Sync already in progress", http.StatusConflict)
		default:
			h.logger.Error("sync trigger failed", "tms_type", tmsType, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusOK, run)
}

// Status handles GET /api/connections/:tmsType/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	tmsType := tmsTypeFromPath(r.URL.Path)
	if err := ValidateTMSType(tmsType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.connections.Get(r.Context(), tmsType)
	if err != nil {
		h.logger.Error("failed to get connection", "tms_type", tmsType, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if conn == nil {
		http.Error(w, "Connection not configured", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"tms_type":          tmsType,
		"connection_status": conn.ConnectionStatus,
		"is_active":         conn.IsActive,
		"sync_in_progress":  h.runner.IsRunning(tmsType),
		"last_sync_at":      conn.LastSyncAt,
		"last_sync_status":  conn.LastSyncStatus,
		"error_message":     conn.ErrorMessage,
		"stats":             conn.Stats,
	})
}

// Test handles POST /api/connections/:tmsType/test. It performs a one-page
// probe against the provider without touching stored carriers.
func (h *SyncHandler) Test(w http.ResponseWriter, r *http.Request) {
	tmsType := tmsTypeFromPath(r.URL.Path)
	if err := ValidateTMSType(tmsType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.connections.Get(r.Context(), tmsType)
	if err != nil {
		h.logger.Error("failed to get connection", "tms_type", tmsType, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if conn == nil {
		http.Error(w, "Connection not configured", http.StatusNotFound)
		return
	}

	if err := h.prober.Probe(r.Context(), conn); err != nil {
		var authErr *tms.AuthRejectedError
		reason := "unreachable"
		if errors.As(err, &authErr) {
			reason = "auth_rejected"
		}

		h.logger.Warn("connection test failed", "tms_type", tmsType, "reason", reason, "error", err)
		h.recordTestResult(r.Context(), tmsType, models.ConnectionStatusError, err.Error())
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"tms_type": tmsType,
			"ok":       false,
			"reason":   reason,
			"error":    err.Error(),
		})
		return
	}

	h.recordTestResult(r.Context(), tmsType, models.ConnectionStatusConnected, "")
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"tms_type": tmsType,
		"ok":       true,
	})
}

// recordTestResult persists the probe outcome on the connection so the
// status endpoint reflects the latest test.
func (h *SyncHandler) recordTestResult(ctx context.Context, tmsType string, status models.ConnectionStatus, errMsg string) {
	patch := models.ConnectionPatch{
		ConnectionStatus: &status,
		ErrorMessage:     &errMsg,
	}
	if _, err := h.connections.Upsert(ctx, tmsType, patch); err != nil {
		h.logger.Error("failed to record connection test result", "tms_type", tmsType, "error", err)
	}
}

// Runs handles GET /api/connections/:tmsType/runs
func (h *SyncHandler) Runs(w http.ResponseWriter, r *http.Request) {
	tmsType := tmsTypeFromPath(r.URL.Path)
	if err := ValidateTMSType(tmsType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runs.ListByType(r.Context(), tmsType, limit)
	if err != nil {
		h.logger.Error("failed to list sync runs", "tms_type", tmsType, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if runs == nil {
		runs = []models.SyncRun{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"tms_type": tmsType,
		"runs":     runs,
		"count":    len(runs),
	})
}
