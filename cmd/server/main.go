package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/telegraph-host/media-gateway/internal/blob"
	"github.com/telegraph-host/media-gateway/internal/cache"
	"github.com/telegraph-host/media-gateway/internal/config"
	"github.com/telegraph-host/media-gateway/internal/database"
	"github.com/telegraph-host/media-gateway/internal/handlers"
	"github.com/telegraph-host/media-gateway/internal/httpserver"
	"github.com/telegraph-host/media-gateway/internal/ingest"
	"github.com/telegraph-host/media-gateway/internal/retrieval"
	"github.com/telegraph-host/media-gateway/internal/store"
	"github.com/telegraph-host/media-gateway/internal/telemetry"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	cfg := config.Load()

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database initialization failed")
	}

	st := store.New(db)

	var blobs blob.Store
	switch cfg.BlobBackend {
	case "s3":
		blobs = blob.NewS3Store(blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		blobs = blob.NewTelegramStore(logger, cfg.TGAPIBase, cfg.TGBotToken, cfg.TGChatID)
	}

	var edgeCache cache.Cache
	switch cfg.CacheBackend {
	case "redis":
		redisCache := cache.NewRedisCache(logger, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(); err != nil {
			logger.WithError(err).Fatal("Redis connection failed")
		}
		edgeCache = redisCache
	default:
		edgeCache, err = cache.NewMemoryCache(cfg.CacheMemoryEntries)
		if err != nil {
			logger.WithError(err).Fatal("Cache initialization failed")
		}
	}

	ingestor := ingest.New(logger, st, blobs, cfg.Domain, cfg.MaxUploadBytes)
	resolver := retrieval.NewResolver(logger, st, blobs, edgeCache)

	sampler := telemetry.NewSampler(logger, st, cfg.SampleRate, 4096)
	sampler.Start()

	handler := handlers.NewGatewayHandler(logger, cfg, st, edgeCache, ingestor, resolver, sampler)

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger, db))
	r.Use(handlers.RateLimitMiddleware(cfg))
	handlers.RegisterRoutes(r, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpserver.New(cfg.ListenAddr, r)
	if err := httpserver.Run(ctx, logger, server); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	// Drain queued telemetry before exit.
	sampler.Close()
}
