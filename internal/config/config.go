package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	Domain         string
	MaxUploadBytes int64
	SampleRate     float64

	EnableAuth   bool
	AuthUsername string
	AuthPassword string

	BlobBackend string
	TGBotToken  string
	TGChatID    string
	TGAPIBase   string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	CacheBackend       string
	CacheMemoryEntries int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	RateLimit       int
	RateLimitWindow time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		Domain:             mustGetEnv("DOMAIN"),
		MaxUploadBytes:     int64(getEnvInt("MAX_SIZE_MB", 20)) * 1024 * 1024,
		SampleRate:         getEnvFloat("SAMPLE_RATE", 0.1),
		EnableAuth:         getEnvBool("ENABLE_AUTH", false),
		AuthUsername:       getEnv("AUTH_USERNAME", ""),
		AuthPassword:       getEnv("AUTH_PASSWORD", ""),
		BlobBackend:        getEnv("BLOB_BACKEND", "telegram"),
		TGBotToken:         getEnv("TG_BOT_TOKEN", ""),
		TGChatID:           getEnv("TG_CHAT_ID", ""),
		TGAPIBase:          getEnv("TG_API_BASE", "https://api.telegram.org"),
		S3Bucket:           getEnv("S3_BUCKET", "media-gateway"),
		S3Region:           getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3AccessKey:        getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CacheBackend:       getEnv("CACHE_BACKEND", "memory"),
		CacheMemoryEntries: getEnvInt("CACHE_MEMORY_ENTRIES", 1024),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RateLimit:          getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		PostgresUser:       getEnv("POSTGRES_USER", "media"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase:   getEnv("POSTGRES_DATABASE", "media_gateway"),
		PostgresSSLMode:    getEnv("POSTGRES_SSL_MODE", "disable"),
	}

	switch cfg.BlobBackend {
	case "telegram":
		if cfg.TGBotToken == "" || cfg.TGChatID == "" {
			panic("TG_BOT_TOKEN and TG_CHAT_ID must be provided for the telegram backend")
		}
	case "s3":
		if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			panic("AWS credentials must be provided for the s3 backend")
		}
	default:
		panic("Unknown BLOB_BACKEND: " + cfg.BlobBackend)
	}

	if cfg.EnableAuth && (cfg.AuthUsername == "" || cfg.AuthPassword == "") {
		panic("AUTH_USERNAME and AUTH_PASSWORD must be provided when ENABLE_AUTH is set")
	}

	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		panic("SAMPLE_RATE must be in (0, 1]")
	}

	return cfg
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("Missing required environment variable: " + key)
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
