package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/symphonia/tms-sync/internal/auth"
	"github.com/symphonia/tms-sync/internal/carriersync"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	mux *http.ServeMux,
	connections carriersync.ConnectionStore,
	runs carriersync.RunStore,
	runner SyncRunner,
	prober ConnectionProber,
	authConfig auth.Config,
	logger *slog.Logger,
) {
	connectionHandler := NewConnectionHandler(connections, logger)
	syncHandler := NewSyncHandler(connections, runs, runner, prober, logger)
	authHandler := NewAuthHandler(authConfig, logger)

	authMiddleware := auth.AuthMiddleware(authConfig)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Connection collection routes (admin only)
	mux.HandleFunc("/api/connections", func(w http.ResponseWriter, r *http.Request) {
		// Handle CORS preflight
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}

		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				connectionHandler.List(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	// Per-connection routes (admin only)
	mux.HandleFunc("/api/connections/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/connections/" {
			http.NotFound(w, r)
			return
		}

		// Handle CORS preflight for subroutes
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}

		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handle /api/connections/:tmsType/sync
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sync") {
				syncHandler.Trigger(w, r)
				return
			}

			// Handle /api/connections/:tmsType/test
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/test") {
				syncHandler.Test(w, r)
				return
			}

			// Handle /api/connections/:tmsType/status
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/status") {
				syncHandler.Status(w, r)
				return
			}

			// Handle /api/connections/:tmsType/runs
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/runs") {
				syncHandler.Runs(w, r)
				return
			}

			// Handle /api/connections/:tmsType
			switch r.Method {
			case http.MethodGet:
				connectionHandler.Get(w, r)
			case http.MethodPut:
				connectionHandler.Update(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	// CORS preflight
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})
}
