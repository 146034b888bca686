package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/archive"
	"github.com/AdamBeresnev/cricket-live/internal/config"
	"github.com/AdamBeresnev/cricket-live/internal/db"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database connection established", "driver", cfg.DatabaseDriver)

	if err := db.RunMigrations(database); err != nil {
		return err
	}

	var hub *realtime.Hub
	var notifier realtime.Notifier = realtime.NopNotifier{}
	if cfg.RealtimeEnabled {
		hub = realtime.NewHub(logger)
		notifier = hub
	}

	var archiver service.Archiver
	if cfg.R2 != nil {
		r2, err := archive.NewR2Archiver(ctx, *cfg.R2)
		if err != nil {
			return err
		}
		archiver = r2
		logger.Info("scorecard archiving enabled", "bucket", cfg.R2.BucketName)
	}

	app := newApplication(database, notifier, archiver, logger)
	app.hub = hub
	app.jwtSecret = cfg.JWTSecretKey
	app.allowedOrigins = cfg.CORSAllowedOrigins

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     newRouter(app),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Uploads still need the database.
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if werr := app.finalizer.Wait(drainCtx); werr != nil {
		logger.Warn("scorecard uploads did not finish", "error", werr)
	}
	return err
}
