package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	DBMaxConns        int
	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	StorageTimeout  time.Duration
	CatalogCacheTTL time.Duration
	BusinessHours   booking.BusinessHours
	Calendar        calendar.Grid

	KafkaBrokers     string
	KafkaExportTopic string

	RedisAddr        string
	PreviewRateLimit int
	PreviewWindow    time.Duration

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING
	if cfg.IsProduction && strings.TrimSpace(cfg.ProdOrigins) == "" {
		return nil, fmt.Errorf("PROD_ORIGINS is required in production")
	}

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	if cfg.DBMaxConns, err = getEnvAsInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}

	// JWT secret is required for verifying tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	// Scheduling
	if cfg.StorageTimeout, err = getEnvAsDuration("STORAGE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getEnvAsDuration("CATALOG_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BusinessHours, err = loadBusinessHours(); err != nil {
		return nil, err
	}
	if cfg.Calendar, err = loadGrid(); err != nil {
		return nil, err
	}

	// Calendar export (Kafka disabled when no brokers are set)
	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", "")
	cfg.KafkaExportTopic = getEnv("KAFKA_EXPORT_TOPIC", "reservations.calendar-exports")

	// Conflict preview rate limit (disabled when REDIS_ADDR is empty)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	if cfg.PreviewRateLimit, err = getEnvAsInt("PREVIEW_RATE_LIMIT", 120); err != nil {
		return nil, err
	}
	if cfg.PreviewWindow, err = getEnvAsDuration("PREVIEW_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	// Tracing
	cfg.OTelEnabled = getEnvAsBool("OTEL_ENABLED", false)
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if cfg.OTelSampleRatio, err = getEnvAsFloat("OTEL_SAMPLING_RATIO", 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadBusinessHours() (booking.BusinessHours, error) {
	var h booking.BusinessHours
	for _, f := range []struct {
		key string
		def string
		dst *booking.Clock
	}{
		{"BUSINESS_DAY_START", "08:00", &h.DayStart},
		{"BUSINESS_MIDDAY", "12:00", &h.Midday},
		{"BUSINESS_DAY_END", "17:00", &h.DayEnd},
	} {
		c, err := booking.ParseClock(getEnv(f.key, f.def))
		if err != nil {
			return h, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = c
	}
	return h, h.Validate()
}

func loadGrid() (calendar.Grid, error) {
	g := calendar.DefaultGrid()
	var err error

	if g.StartHour, err = getEnvAsInt("CALENDAR_START_HOUR", g.StartHour); err != nil {
		return g, err
	}
	if g.EndHour, err = getEnvAsInt("CALENDAR_END_HOUR", g.EndHour); err != nil {
		return g, err
	}
	if g.PxPerHour, err = getEnvAsFloat("CALENDAR_PX_PER_HOUR", g.PxPerHour); err != nil {
		return g, err
	}
	if g.MinHeight, err = getEnvAsFloat("CALENDAR_MIN_HEIGHT_PX", g.MinHeight); err != nil {
		return g, err
	}
	if g.Snap, err = getEnvAsDuration("CALENDAR_SNAP", g.Snap); err != nil {
		return g, err
	}
	if g.MinDuration, err = getEnvAsDuration("CALENDAR_MIN_DURATION", g.MinDuration); err != nil {
		return g, err
	}
	return g, g.Validate()
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(getEnv(key, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
