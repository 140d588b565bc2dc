package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/titanic-mlops/titanic-survival/pkg/api"
	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/database"
	"github.com/titanic-mlops/titanic-survival/pkg/logging"
	"github.com/titanic-mlops/titanic-survival/pkg/metadatastore"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
	"github.com/titanic-mlops/titanic-survival/pkg/predictor"
	"github.com/titanic-mlops/titanic-survival/pkg/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)
	logger.Info("Starting Titanic inference server", "environment", cfg.Environment, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails. Every resource it
// opens is closed before it returns.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Prediction log
	var db database.Manager
	if cfg.Postgres.Enabled() {
		pg := database.NewPostgresManager(cfg.Postgres, logger)
		if err := pg.Connect(ctx); err != nil {
			logger.Error("Failed to connect to Postgres, predictions will not be logged", "error", err)
		} else {
			db = pg
			defer pg.Close()
			logger.Info("Logging predictions", "host", cfg.Postgres.Host, "table", cfg.PredictionTable)
		}
	}

	// Run history
	if err := os.MkdirAll(filepath.Dir(cfg.MetadataDBPath), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	store, err := metadatastore.NewSQLiteStore(cfg.MetadataDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite storage: %w", err)
	}
	defer store.Close()

	var service *mlmodel.Service
	catalog, err := config.LoadTrainingConfig(cfg.TrainingConfigPath)
	if err != nil {
		logger.Warn("Training catalogue unavailable, run history and monitoring disabled", "error", err)
	} else {
		service = mlmodel.NewService(store, catalog, mlmodel.PathsFromConfig(cfg), logger)
	}

	// Model. Without an artifact the predictor starts empty and answers 503
	// until a retrain registers one.
	predCfg := predictor.Config{
		ModelPath: cfg.ModelPath,
		Table:     cfg.PredictionTable,
		DB:        db,
		Logger:    logger,
	}
	pred, err := predictor.New(predCfg)
	if err != nil {
		logger.Warn("No model loaded, prediction endpoints unavailable", "path", cfg.ModelPath, "error", err)
		pred = predictor.NewWithModel(nil, predCfg)
	}

	// Scheduled validation
	if cfg.ValidationSchedule != "" && service != nil {
		monitor := scheduler.NewService(service, logger)
		monitor.OnRetrain = func(trained *models.TrainingRun) {
			if err := pred.Reload(); err != nil {
				logger.Error("Failed to reload model", "run_id", trained.ID, "error", err)
			}
		}
		job, err := monitor.AddJob(cfg.ValidationSchedule, cfg.RetrainThreshold, nil)
		if err != nil {
			return fmt.Errorf("failed to schedule validation %q: %w", cfg.ValidationSchedule, err)
		}
		monitor.Start()
		defer monitor.Stop(context.Background())
		logger.Info("Scheduled validation", "job_id", job.ID, "schedule", job.Schedule, "threshold", job.Threshold)
	}

	server := api.NewServer(pred, cfg.Port, api.Options{
		Service:      service,
		BatchWorkers: cfg.BatchWorkers,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Shutdown failed", "error", err)
	}
	return nil
}
