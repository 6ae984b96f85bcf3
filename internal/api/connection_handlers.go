package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/symphonia/tms-sync/internal/carriersync"
	"github.com/symphonia/tms-sync/internal/models"
)

// ConnectionHandler handles TMS connection configuration requests
type ConnectionHandler struct {
	connections carriersync.ConnectionStore
	logger      *slog.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connections carriersync.ConnectionStore, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		logger:      logger,
	}
}

// ConnectionUpdateRequest is the body of PUT /api/connections/:tmsType.
// Omitted fields keep their stored values.
type ConnectionUpdateRequest struct {
	OrganizationName *string             `json:"organization_name,omitempty"`
	IsActive         *bool               `json:"is_active,omitempty"`
	Credentials      *models.Credentials `json:"credentials,omitempty"`
	SyncConfig       *models.SyncConfig  `json:"sync_config,omitempty"`
}

// ConnectionResponse is the external view of a connection. Credentials are
// redacted: the token never leaves the service.
type ConnectionResponse struct {
	TMSType          string                  `json:"tms_type"`
	OrganizationName string                  `json:"organization_name"`
	IsActive         bool                    `json:"is_active"`
	ConnectionStatus models.ConnectionStatus `json:"connection_status"`
	APIURL           string                  `json:"api_url"`
	HasToken         bool                    `json:"has_token"`
	SyncConfig       models.SyncConfig       `json:"sync_config"`
	Stats            models.ConnectionStats  `json:"stats"`
	LastSyncAt       *time.Time              `json:"last_sync_at,omitempty"`
	LastSyncStatus   models.SyncStatus       `json:"last_sync_status,omitempty"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func newConnectionResponse(conn *models.TMSConnection) ConnectionResponse {
	return ConnectionResponse{
		TMSType:          conn.TMSType,
		OrganizationName: conn.OrganizationName,
		IsActive:         conn.IsActive,
		ConnectionStatus: conn.ConnectionStatus,
		APIURL:           conn.Credentials.APIURL,
		HasToken:         conn.Credentials.APIToken != "" || conn.Credentials.APITokenRef != "",
		SyncConfig:       conn.SyncConfig,
		Stats:            conn.Stats,
		LastSyncAt:       conn.LastSyncAt,
		LastSyncStatus:   conn.LastSyncStatus,
		ErrorMessage:     conn.ErrorMessage,
		CreatedAt:        conn.CreatedAt,
		UpdatedAt:        conn.UpdatedAt,
	}
}

// List handles GET /api/connections
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	connections, err := h.connections.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list connections", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	responses := make([]ConnectionResponse, 0, len(connections))
	for i := range connections {
		responses = append(responses, newConnectionResponse(&connections[i]))
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"connections": responses,
		"count":       len(responses),
	})
}

// Get handles GET /api/connections/:tmsType
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, h.logger, http.StatusOK, newConnectionResponse(conn))
}

// Update handles PUT /api/connections/:tmsType. Creates the connection on
// first call, merges partially on subsequent calls.
func (h *ConnectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	tmsType := tmsTypeFromPath(r.URL.Path)
	if err := ValidateTMSType(tmsType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ConnectionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Credentials != nil {
		if err := ValidateCredentials(req.Credentials); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.SyncConfig != nil {
		if err := ValidateSyncConfig(req.SyncConfig); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	patch := models.ConnectionPatch{
		OrganizationName: req.OrganizationName,
		IsActive:         req.IsActive,
		Credentials:      req.Credentials,
		SyncConfig:       req.SyncConfig,
	}

	// New credentials lift the auth-error suspension so automatic syncing
	// resumes on the next scheduler pass.
	if req.Credentials != nil {
		cleared := models.SyncStatus("")
		patch.LastSyncStatus = &cleared
	}

	conn, err := h.connections.Upsert(r.Context(), tmsType, patch)
	if err != nil {
		h.logger.Error("failed to upsert connection", "tms_type", tmsType, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("connection updated",
		"tms_type", tmsType,
		"credentials_changed", req.Credentials != nil,
		"sync_config_changed", req.SyncConfig != nil,
	)

	writeJSON(w, h.logger, http.StatusOK, newConnectionResponse(conn))
}

// tmsTypeFromPath extracts the tmsType segment from paths of the form
// /api/connections/:tmsType[/suffix].
func tmsTypeFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/connections/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
