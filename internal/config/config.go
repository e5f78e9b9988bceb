package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Module("config", fx.Provide(Load))

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DefaultOrgID int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Cache CacheConfig
	Bulk  BulkConfig
	Rate  RateConfig
}

// CacheConfig selects and tunes the calculation result cache backend.
type CacheConfig struct {
	Backend   string // memory | redis
	RedisAddr string
	RedisDB   int
	TTLSecond int
	MaxEntry  int
}

// BulkConfig bounds the bulk calculation fan-out.
type BulkConfig struct {
	MaxBatchSize int
	Concurrency  int
}

// RateConfig holds rate-selection policy knobs.
type RateConfig struct {
	// TieBreak orders equal-priority rates sharing a jurisdiction:
	// oldest_first (creation order, default) or newest_first.
	TieBreak string
}

const (
	TieBreakOldestFirst = "oldest_first"
	TieBreakNewestFirst = "newest_first"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "taxrail"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		DefaultOrgID: getenvInt64("DEFAULT_ORG", 0),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Cache: CacheConfig{
			Backend:   strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			RedisAddr: getenv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisDB:   getenvInt("CACHE_REDIS_DB", 0),
			TTLSecond: getenvInt("CACHE_TTL_SECONDS", 900),
			MaxEntry:  getenvInt("CACHE_MAX_ENTRIES", 10000),
		},
		Bulk: BulkConfig{
			MaxBatchSize: getenvInt("BULK_MAX_BATCH_SIZE", 100),
			Concurrency:  getenvInt("BULK_CONCURRENCY", 8),
		},
		Rate: RateConfig{
			TieBreak: normalizeTieBreak(getenv("RATE_TIE_BREAK", TieBreakOldestFirst)),
		},
	}

	return cfg
}

func normalizeTieBreak(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case TieBreakNewestFirst:
		return TieBreakNewestFirst
	default:
		return TieBreakOldestFirst
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("invalid int for %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}

func getenvInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		log.Printf("invalid int64 for %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}
