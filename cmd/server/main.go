package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/cache"
	"github.com/projecty/backend/internal/config"
	"github.com/projecty/backend/internal/database"
	"github.com/projecty/backend/internal/handlers"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
	"github.com/projecty/backend/internal/middleware"
	"github.com/projecty/backend/internal/realtime"
	"github.com/projecty/backend/internal/search"
	"github.com/projecty/backend/internal/storage"
	"github.com/projecty/backend/internal/telemetry"
	"github.com/projecty/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "projecty-backend"

func main() {
	dotenv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		// logger is not up yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== Project-Y server starting ===",
		zap.String("environment", cfg.Environment),
		zap.Bool("dotenv", dotenv))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	metrics.Initialize()

	dbOpts := database.Options{DSN: cfg.DatabaseURL, Verbose: cfg.IsDevelopment()}
	dbOpts.Plugins = []gorm.Plugin{metrics.GORMPlugin()}
	if cfg.OTelEnabled {
		dbOpts.Plugins = append(dbOpts.Plugins, telemetry.GORMTracingPlugin())
	}
	if err := database.Initialize(dbOpts); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Realtime: a single process pushes straight into its hub; with Redis
	// every instance publishes to the channel and relays it locally.
	hub := websocket.NewHub()
	go hub.Run()

	var notifier realtime.Notifier = hub
	var redisClient *cache.RedisClient
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
		relay := realtime.NewRedisNotifier(redisClient.Raw(), realtime.DefaultChannel)
		notifier = relay
		go func() {
			if err := relay.Relay(ctx, hub); err != nil {
				logger.Log.Error("Realtime relay stopped", zap.Error(err))
			}
		}()
	}

	authService := auth.NewService(database.DB, []byte(cfg.JWTSecret), cfg.JWTTTL)
	wsHandler := websocket.NewHandler(hub, authService)

	h := handlers.NewHandlers(database.DB, authService, notifier)
	if redisClient != nil {
		h.SetCache(redisClient)
	}
	h.SetUploader(newUploader(ctx, cfg))
	configureSearch(ctx, cfg, h, redisClient)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))
	r.Use(middleware.MetricsMiddleware())
	if cfg.OTelEnabled {
		r.Use(middleware.TracingMiddleware(serviceName))
	}

	apiLimit := middleware.DefaultRateLimitConfig(cfg.RateLimitPerMinute)
	authLimitCfg := middleware.AuthRateLimitConfig()
	var authLimit gin.HandlerFunc
	if redisClient != nil {
		r.Use(middleware.RedisRateLimitMiddleware(redisClient, apiLimit))
		authLimit = middleware.RedisRateLimitMiddleware(redisClient, authLimitCfg)
	} else {
		apiLimiter := middleware.NewMemoryRateLimiter(apiLimit)
		authLimiter := middleware.NewMemoryRateLimiter(authLimitCfg)
		go pruneLimiters(ctx, apiLimit.Window, apiLimiter, authLimiter)
		r.Use(apiLimiter.Middleware())
		authLimit = authLimiter.Middleware()
	}

	h.RegisterRoutes(r, auth.Middleware(authService), authLimit, wsHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Project-Y backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stop()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Tracer shutdown warning", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}

// newUploader prefers S3 when a bucket is configured and falls back to an
// in-memory store so uploads still work locally
func newUploader(ctx context.Context, cfg *config.Config) storage.ImageUploader {
	if cfg.AWSBucket != "" {
		s3, err := storage.NewS3Uploader(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err == nil {
			if err := s3.CheckBucketAccess(ctx); err != nil {
				logger.Log.Warn("S3 bucket access failed", zap.String("bucket", cfg.AWSBucket), zap.Error(err))
			}
			return s3
		}
		logger.Log.Warn("Failed to initialize S3 uploader", zap.Error(err))
	}
	logger.Log.Warn("Using in-memory image storage; uploads are lost on restart")
	return storage.NewMemoryUploader(cfg.CDNBaseURL)
}

func configureSearch(ctx context.Context, cfg *config.Config, h *handlers.Handlers, rc *cache.RedisClient) {
	var searcher search.Searcher = search.NewPostgresSearcher(database.DB)

	if cfg.SearchBackend == "elasticsearch" {
		es, err := search.NewElasticSearcher(cfg.ElasticsearchURL, database.DB, nil)
		switch {
		case err != nil:
			logger.Log.Warn("Elasticsearch client failed, using Postgres search", zap.Error(err))
		default:
			if err := es.Ping(ctx); err != nil {
				logger.Log.Warn("Elasticsearch unreachable, queries will fall back to Postgres", zap.Error(err))
			} else if err := es.InitializeIndices(ctx); err != nil {
				logger.Log.Warn("Failed to initialize search indices", zap.Error(err))
			}
			h.SetIndexers(es, es)
			searcher = es
		}
	}

	if rc != nil {
		searcher = search.NewCachedSearcher(searcher, rc, search.DefaultCacheTTL)
	}
	h.SetSearcher(searcher)
	logger.Log.Info("Search configured", zap.String("backend", cfg.SearchBackend))
}

func pruneLimiters(ctx context.Context, every time.Duration, limiters ...*middleware.MemoryRateLimiter) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, l := range limiters {
				l.Prune(now)
			}
		}
	}
}
