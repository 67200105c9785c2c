package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lifeplanner-api/internal/config"
	"lifeplanner-api/internal/database"
	"lifeplanner-api/internal/janitor"
	"lifeplanner-api/internal/logger"
	"lifeplanner-api/internal/occurrence"
	"lifeplanner-api/internal/realtime"
	"lifeplanner-api/internal/recurrence"
	"lifeplanner-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. Settings come from the environment, optionally
seeded by a .env file in the working directory.

Examples:
  # SQLite file next to the binary
  lifeplanner serve

  # Postgres
  DB_DRIVER=postgres DATABASE_URL=postgres://localhost/lifeplanner lifeplanner serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("database unavailable", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	locks := occurrence.NewSeriesLocks(cfg.Schedule.SeriesLockTTL)
	calc := recurrence.New(cfg.Schedule.Location, cfg.Schedule.ReminderHour)
	rec := occurrence.NewReconciler(db, calc, log.Named("occurrence"), occurrence.WithSeriesLocks(locks))

	jan, err := janitor.New(cfg.Schedule.JanitorSpec, cfg.Schedule.Location, locks, log)
	if err != nil {
		return err
	}
	jan.Start()

	router := routes.SetupRoutes(routes.Deps{
		DB:         db,
		Reconciler: rec,
		Hub:        realtime.NewHub(),
		Logger:     log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("location", cfg.Schedule.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	jan.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
