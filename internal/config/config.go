package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	NASA struct {
		APIKey   string
		BaseURL  string
		Timeout  time.Duration
		CacheTTL time.Duration
	}
	Workers struct {
		NEOEnabled      bool
		AlertEnabled    bool
		CleanupEnabled  bool
		NEOInterval     time.Duration
		AlertInterval   time.Duration
		CleanupInterval time.Duration
		SyncDaysAhead   int
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
		// PerIP switches from one shared limiter to a limiter per client IP.
		PerIP bool
	}
	Reports struct {
		OutputDir string
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	// DB
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "cosmicwatch")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	// NASA NeoWs
	cfg.NASA.APIKey = getEnv("NASA_API_KEY", "DEMO_KEY")
	cfg.NASA.BaseURL = getEnv("NASA_BASE_URL", "https://api.nasa.gov/neo/rest/v1")
	cfg.NASA.Timeout = getEnvAsDuration("NASA_TIMEOUT", 15*time.Second)
	cfg.NASA.CacheTTL = getEnvAsDuration("NASA_CACHE_TTL", 6*time.Hour)

	// Workers
	cfg.Workers.NEOEnabled = getEnvAsBool("NEO_WORKER_ENABLED", true)
	cfg.Workers.AlertEnabled = getEnvAsBool("ALERT_WORKER_ENABLED", true)
	cfg.Workers.CleanupEnabled = getEnvAsBool("CLEANUP_WORKER_ENABLED", true)
	cfg.Workers.NEOInterval = getEnvAsDuration("WORKER_NEO_INTERVAL", 6*time.Hour)
	cfg.Workers.AlertInterval = getEnvAsDuration("WORKER_ALERT_INTERVAL", 15*time.Minute)
	cfg.Workers.CleanupInterval = getEnvAsDuration("WORKER_CLEANUP_INTERVAL", time.Hour)
	cfg.Workers.SyncDaysAhead = getEnvAsInt("SYNC_DAYS_AHEAD", 7)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)
	cfg.RateLimit.PerIP = getEnvAsBool("RATE_LIMIT_PER_IP", false)

	// Reports
	cfg.Reports.OutputDir = getEnv("REPORTS_OUTPUT_DIR", "./data/reports")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}
