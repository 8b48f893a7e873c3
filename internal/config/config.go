package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	Auth    AuthConfig
	Draft   DraftConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig holds connection values for the ticket system of record.
// The portal runs in a degraded mode when either value is missing:
// repository operations report a configuration error instead of reaching
// a database that was never configured.
type BackendConfig struct {
	DSN            string
	APIKey         string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds session store connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session and admin gate parameters.
type AuthConfig struct {
	JWTSecret         string
	SessionTTLMinutes int
	BcryptCost        int
	AdminPassword     string
	PortalEmail       string
	PortalPassword    string
}

// DraftConfig locates the local draft cache database.
type DraftConfig struct {
	Path string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			DSN:            os.Getenv("BACKEND_DSN"),
			APIKey:         os.Getenv("BACKEND_API_KEY"),
			MaxConns:       int32(getEnvAsInt("BACKEND_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("BACKEND_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("BACKEND_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("BACKEND_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("BACKEND_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLMinutes: getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminPassword:     getEnv("ADMIN_PASSWORD", "admin"),
			PortalEmail:       getEnv("PORTAL_ACCOUNT_EMAIL", "test@example.com"),
			PortalPassword:    getEnv("PORTAL_ACCOUNT_PASSWORD", "password123"),
		},
		Draft: DraftConfig{
			Path: getEnv("DRAFT_DB_PATH", "data/drafts.db"),
		},
	}

	return cfg, nil
}

// Configured reports whether the backend is usable at all.
func (b BackendConfig) Configured() bool {
	return b.DSN != "" && b.APIKey != ""
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the lifetime of an authenticated session.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
