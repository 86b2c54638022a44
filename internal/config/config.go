package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=vendorsales port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	Timezone    *time.Location

	RedisAddr     string
	RedisPassword string

	InventoryURL      string
	InventoryTimeout  time.Duration
	InventoryCacheTTL time.Duration

	Risk RiskConfig
	IMEI IMEIConfig
	Log  LogConfig
}

type RiskConfig struct {
	// FailOpen scores a factor whose history query fails as zero penalty and
	// marks the assessment degraded. When false the submission is refused.
	FailOpen bool
}

type IMEIConfig struct {
	// RequireChecksum refuses submissions whose Luhn check digit is wrong.
	RequireChecksum bool
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		Timezone:    loadLocation(getEnv("APP_TIMEZONE", "UTC")),

		RedisAddr:     getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		InventoryURL:      strings.TrimRight(getEnv("INVENTORY_URL", ""), "/"),
		InventoryTimeout:  getDuration("INVENTORY_TIMEOUT", 5*time.Second),
		InventoryCacheTTL: getDuration("INVENTORY_CACHE_TTL", 10*time.Minute),

		Risk: RiskConfig{
			FailOpen: getBool("RISK_FAIL_OPEN", true),
		},
		IMEI: IMEIConfig{
			RequireChecksum: getBool("IMEI_REQUIRE_CHECKSUM", false),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getInt("LOG_MAX_AGE_DAYS", 30),
		},
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the local default")
	}
	if cfg.InventoryURL == "" {
		log.Println("[WARN] INVENTORY_URL not set, inventory mismatch checks are disabled")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[WARN] unknown APP_TIMEZONE %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}
