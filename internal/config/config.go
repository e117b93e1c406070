package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPlanConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

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

	Make MakeConfig

	RateLimit RateLimitConfig
}

// MakeConfig configures the external workflow platform client.
type MakeConfig struct {
	BaseURL         string
	DefaultFolderID string
	TimeoutSeconds  int
}

// RateLimitConfig configures the redis-backed ingest limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IngestTenantRate     float64
	IngestTenantBurst    int
	IngestEndpointRate   float64
	IngestEndpointBurst  int
	IngestLockTTLSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "docupulse"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "docupulse"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		Make: MakeConfig{
			BaseURL:         strings.TrimRight(getenv("MAKE_API_BASE_URL", "https://eu1.make.com/api/v2"), "/"),
			DefaultFolderID: strings.TrimSpace(getenv("MAKE_DEFAULT_FOLDER_ID", "")),
			TimeoutSeconds:  int(getenvInt64("MAKE_TIMEOUT_SECONDS", 8)),
		},

		RateLimit: RateLimitConfig{
			Enabled:              getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:            strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword:        getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:              int(getenvInt64("RATE_LIMIT_REDIS_DB", 0)),
			IngestTenantRate:     getenvFloat("RATE_LIMIT_INGEST_TENANT_RATE", 50),
			IngestTenantBurst:    int(getenvInt64("RATE_LIMIT_INGEST_TENANT_BURST", 100)),
			IngestEndpointRate:   getenvFloat("RATE_LIMIT_INGEST_ENDPOINT_RATE", 500),
			IngestEndpointBurst:  int(getenvInt64("RATE_LIMIT_INGEST_ENDPOINT_BURST", 1000)),
			IngestLockTTLSeconds: int(getenvInt64("RATE_LIMIT_INGEST_LOCK_TTL_SECONDS", 10)),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
