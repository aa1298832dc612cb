package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/princekumarofficial/course-media-service/docs"
	"github.com/princekumarofficial/course-media-service/internal/cache"
	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/events"
	"github.com/princekumarofficial/course-media-service/internal/http/handlers/media"
	"github.com/princekumarofficial/course-media-service/internal/http/handlers/quota"
	wsHandler "github.com/princekumarofficial/course-media-service/internal/http/handlers/websocket"
	"github.com/princekumarofficial/course-media-service/internal/http/middleware"
	"github.com/princekumarofficial/course-media-service/internal/logging"
	"github.com/princekumarofficial/course-media-service/internal/metrics"
	ledger "github.com/princekumarofficial/course-media-service/internal/quota"
	"github.com/princekumarofficial/course-media-service/internal/services/ingest"
	"github.com/princekumarofficial/course-media-service/internal/services/objectstore"
	"github.com/princekumarofficial/course-media-service/internal/storage/postgres"
	"github.com/princekumarofficial/course-media-service/internal/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

// @title Course Media Service API
// @version 1.0
// @description Chunked media uploads with per-tenant storage quotas.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	// database setup
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis", slog.String("address", cfg.Redis.Address))

	gateway, err := objectstore.NewGateway(cfg.MinIO, logger)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}
	if err := gateway.EnsureBucketExists(ctx); err != nil {
		// Retried on the first upload
		slog.Warn("Bucket check failed", slog.String("error", err.Error()))
	}

	m, err := metrics.New(nil)
	if err != nil {
		log.Fatal("Failed to register metrics:", err)
	}

	hub := websocket.NewHub()
	quotas := cache.NewQuotaCache(ledger.NewLedger(storage, ledger.WithLogger(logger)), redisClient, logger)
	sessions := cache.NewSessionStore(redisClient, cfg.Media.SessionTTL)

	coordinator := ingest.New(ingest.Deps{
		Catalog:  storage,
		Quota:    quotas,
		Store:    gateway,
		Sessions: sessions,
		Events:   events.NewEventPublisher(hub),
		Metrics:  m,
		Logger:   logger,
		Config:   ingest.ConfigFrom(cfg.Media),
	})

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	rateLimits := middleware.NewRateLimitConfig(redisClient, cfg.RateLimit)
	mediaHandlers := media.NewMediaHandlers(coordinator)

	router := http.NewServeMux()

	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("GET /metrics", m.Handler())
	router.Handle("GET /swagger/", httpSwagger.WrapHandler)
	router.HandleFunc("GET /ws", wsHandler.WebSocketHandler(hub, cfg.JWTSecret))

	router.Handle("POST /media/uploads", auth(rateLimits.RateLimitedHandler(middleware.ActionInitiate, mediaHandlers.InitiateUpload())))
	router.Handle("GET /media/uploads/{id}", auth(mediaHandlers.GetUploadStatus()))
	router.Handle("POST /media/uploads/{id}/part-urls", auth(mediaHandlers.RefreshPartURLs()))
	router.Handle("POST /media/uploads/{id}/complete", auth(mediaHandlers.CompleteUpload()))
	router.Handle("DELETE /media/uploads/{id}", auth(mediaHandlers.CancelUpload()))
	router.Handle("DELETE /media/{id}", auth(mediaHandlers.DeleteMedia()))
	router.Handle("GET /media/{id}/access-url", auth(mediaHandlers.GetAccessURL()))

	router.Handle("GET /quota", auth(quota.GetUsage(quotas)))
	router.Handle("PUT /admin/quotas/{tenant}", auth(middleware.RequireAdmin(quota.SetQuota(quotas))))
	router.Handle("GET /admin/cache/stats", auth(middleware.RequireAdmin(cache.GetCacheStats(redisClient))))
	router.Handle("DELETE /admin/cache", auth(middleware.RequireAdmin(cache.ClearCache(redisClient))))

	server := &http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("server started", slog.String("address", cfg.HTTPServer.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		coordinator.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
