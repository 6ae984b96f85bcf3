package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/symphonia/tms-sync/internal/api"
	"github.com/symphonia/tms-sync/internal/auth"
	"github.com/symphonia/tms-sync/internal/carriersync"
	"github.com/symphonia/tms-sync/internal/config"
	"github.com/symphonia/tms-sync/internal/database"
	"github.com/symphonia/tms-sync/internal/logging"
	"github.com/symphonia/tms-sync/internal/metrics"
	"github.com/symphonia/tms-sync/internal/scheduler"
	"github.com/symphonia/tms-sync/internal/secrets"
	"github.com/symphonia/tms-sync/internal/server"
	"github.com/symphonia/tms-sync/internal/tms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting tms-sync")

	ctx := context.Background()

	logger.Info("connecting to database")
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	connectionRepo := database.NewConnectionRepository(db)
	carrierRepo := database.NewCarrierRepository(db)
	runRepo := database.NewSyncRunRepository(db)

	// Metrics
	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Sync pipeline
	resolver := secrets.NewEnvResolver()
	tmsClient := tms.NewClient(cfg.Sync.RequestTimeout, resolver, logger)
	reconciler := carriersync.NewReconciler(carrierRepo)
	orchestrator := carriersync.NewOrchestrator(
		connectionRepo,
		runRepo,
		tmsClient,
		carriersync.NewClientIDClassifier(),
		reconciler,
		collector,
		cfg.Sync.PageSize,
		logger,
	)

	// HTTP surface
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			logger.Error("health check failed", "error", err)
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"tms-sync","status":"ready","version":"0.1.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", !authConfig.UsesDefaultSecret())

	logger.Info("setting up REST API")
	api.SetupRoutes(mux, connectionRepo, runRepo, orchestrator, tmsClient, authConfig, logger)

	// Auto-sync scheduler
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.Sync.SchedulerOn {
		logger.Info("starting sync scheduler")
		syncScheduler := scheduler.NewSyncScheduler(connectionRepo, orchestrator, logger)
		go syncScheduler.Start(schedulerCtx)
	} else {
		logger.Info("sync scheduler disabled")
	}

	// Run history retention
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := runRepo.PruneOlderThan(ctx, 90)
				if err != nil {
					logger.Error("failed to prune sync run history", "error", err)
				} else if deleted > 0 {
					logger.Info("pruned sync run history", "deleted", deleted)
				}
			case <-schedulerCtx.Done():
				return
			}
		}
	}()

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("tms-sync started", "port", cfg.Server.Port)

	waitForSignal(logger)

	logger.Info("shutting down")
	stopScheduler()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
