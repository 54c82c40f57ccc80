package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv       string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	Workers      int
	BatchSize    int
	ErrorRateMax float64
	BatchRate    float64
	CacheTTL     time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	return Config{
		AppEnv:       env("APP_ENV", "prod"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/rms?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		Workers:      atoi("IMPORT_WORKERS", 1),
		BatchSize:    atoi("IMPORT_BATCH_SIZE", 500),
		ErrorRateMax: atof("IMPORT_ERROR_RATE_MAX", 0.05),
		BatchRate:    atof("IMPORT_BATCH_RATE", 0),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
