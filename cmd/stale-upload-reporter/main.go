package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/course-media-service/internal/cache"
	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/logging"
	"github.com/princekumarofficial/course-media-service/internal/services/ingest"
	"github.com/princekumarofficial/course-media-service/internal/storage/postgres"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

type staleLister interface {
	StaleUploads(ctx context.Context, olderThan time.Duration, limit int) ([]ingest.StaleUpload, error)
}

// StaleUploadReporter periodically logs uploads stuck in UPLOADING or FAILED
// so operators can reconcile them. It never modifies records or quota.
type StaleUploadReporter struct {
	lister     staleLister
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	logger     *slog.Logger
}

func NewStaleUploadReporter(lister staleLister, cfg config.Reporter, logger *slog.Logger) *StaleUploadReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &StaleUploadReporter{
		lister:     lister,
		interval:   cfg.Interval,
		staleAfter: cfg.StaleAfter,
		limit:      cfg.Limit,
		logger:     logger,
	}
}

func (r *StaleUploadReporter) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Stale upload reporter started",
		"interval", r.interval.String(),
		"stale_after", r.staleAfter.String())

	// Run once immediately on startup
	r.report(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stale upload reporter shutting down")
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

type summary struct {
	uploading     int
	orphaned      int
	failed        int
	reservedBytes int64
}

func (r *StaleUploadReporter) report(ctx context.Context) summary {
	startTime := time.Now()

	stale, err := r.lister.StaleUploads(ctx, r.staleAfter, r.limit)
	if err != nil {
		r.logger.Error("Failed to list stale uploads",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return summary{}
	}

	var s summary
	for _, u := range stale {
		switch {
		case u.Media.Status == media.StatusFailed:
			s.failed++
		case !u.SessionActive:
			s.orphaned++
		default:
			s.uploading++
		}
		s.reservedBytes += u.Media.DeclaredSize

		r.logger.Warn("Stale upload",
			"media_id", u.Media.ID,
			"tenant_id", u.Media.TenantID,
			"status", string(u.Media.Status),
			"session_active", u.SessionActive,
			"declared_size_bytes", u.Media.DeclaredSize,
			"storage_key", u.Media.StorageKey,
			"upload_time", u.Media.UploadTime)
	}

	r.logger.Info("Completed stale upload scan",
		"stale", len(stale),
		"uploading", s.uploading,
		"orphaned", s.orphaned,
		"failed", s.failed,
		"reserved_bytes", s.reservedBytes,
		"duration_ms", time.Since(startTime).Milliseconds())
	return s
}

func main() {
	// Load config
	cfg := config.MustLoad()

	logger := logging.New(cfg.Log).With("component", "stale-upload-reporter")
	slog.SetDefault(logger)

	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer storage.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Only the catalog and session store are read
	coordinator := ingest.New(ingest.Deps{
		Catalog:  storage,
		Sessions: cache.NewSessionStore(redisClient, cfg.Media.SessionTTL),
		Logger:   logger,
		Config:   ingest.ConfigFrom(cfg.Media),
	})

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	NewStaleUploadReporter(coordinator, cfg.Reporter, logger).Start(ctx)

	slog.Info("Stale upload reporter stopped")
}
