package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kdimtricp/emostim/internal/api"
	"github.com/kdimtricp/emostim/internal/catalog"
	"github.com/kdimtricp/emostim/internal/config"
	"github.com/kdimtricp/emostim/internal/database"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/logging"
	"github.com/kdimtricp/emostim/internal/metrics"
	"github.com/kdimtricp/emostim/internal/storage"
	"github.com/kdimtricp/emostim/internal/streaming"
	"github.com/sirupsen/logrus"
)

func main() {
	configDir := flag.String("config", ".", "Directory holding an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{Service: "emostim-server", Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.WithError(err).Error("Server failed")
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails. Everything it
// opens is closed before it returns.
func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	localStorage, err := storage.NewLocalStorage(cfg.VideoDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	db, err := database.NewDB(cfg.Database(log))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m := metrics.New()
	videos := catalog.New(localStorage, cfg.HealingVideo, log)
	limiter := streaming.NewLimiter(cfg.MaxStreams, m.ActiveStreams, m.RejectedStreams)

	app := &api.App{
		Experiment: experiment.NewService(
			database.NewParticipantRepository(db),
			database.NewResponseRepository(db),
			videos,
			experiment.Config{ResponsesStored: m.ResponsesStored, Logger: log},
		),
		Catalog: videos,
		Videos: streaming.NewServer(localStorage, limiter, streaming.Config{
			ChunkSize:         cfg.ChunkSize,
			RetryAfterSeconds: cfg.RetryAfterSeconds,
			BytesStreamed:     m.BytesStreamed,
			Logger:            log,
		}),
		Health:  api.NewHealth(db, limiter),
		Metrics: m,
		Logger:  log,
	}

	if _, err := os.Stat(filepath.Join(localStorage.BasePath(), cfg.HealingVideo)); err != nil {
		log.WithField("healing_video", cfg.HealingVideo).Warn("Healing video not found in video directory")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"video_dir":   localStorage.BasePath(),
		"stimuli":     len(videos.ListStimulusVideos()),
		"db_type":     cfg.DBType,
		"max_streams": cfg.MaxStreams,
		"environment": cfg.Environment,
	}).Info("Server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
