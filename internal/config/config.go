package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTTTL    time.Duration

	Elit       ElitConfig
	Catalog    CatalogConfig
	Redis      RedisConfig
	Credential CredentialConfig
	Worker     WorkerConfig

	CORSAllowedOrigins []string
}

// ElitConfig contains the upstream API location and the default account.
type ElitConfig struct {
	BaseURL string
	UserID  string
	Token   string
	Timeout time.Duration
}

// CatalogConfig contains loading and display parameters.
type CatalogConfig struct {
	PagePause         time.Duration
	InitialRetryDelay time.Duration
	FilterDebounce    time.Duration
	DefaultPageSize   int
}

// RedisConfig contains Redis connection parameters. An empty Host disables
// credential caching.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CredentialConfig controls how cached credentials are sealed and kept.
type CredentialConfig struct {
	Secret string
	TTL    time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	ReloadInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"))

	// ELIT
	cfg.Elit = ElitConfig{
		BaseURL: getEnv("ELIT_BASE_URL", "https://clientes.elit.com.ar/v1/api"),
		UserID:  getEnv("ELIT_USER_ID", ""),
		Token:   getEnv("ELIT_TOKEN", ""),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Credential = CredentialConfig{
		Secret: getEnv("CREDENTIAL_SECRET", ""),
	}

	cfg.Catalog.DefaultPageSize = getEnvInt("DEFAULT_PAGE_SIZE", 20)

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "12h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.Elit.Timeout, err = parseDurationEnv("ELIT_HTTP_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid ELIT_HTTP_TIMEOUT: %w", err)
	}
	if cfg.Catalog.PagePause, err = parseDurationEnv("ELIT_PAGE_PAUSE", "100ms"); err != nil {
		return nil, fmt.Errorf("invalid ELIT_PAGE_PAUSE: %w", err)
	}
	if cfg.Catalog.InitialRetryDelay, err = parseDurationEnv("INITIAL_RETRY_DELAY", "2s"); err != nil {
		return nil, fmt.Errorf("invalid INITIAL_RETRY_DELAY: %w", err)
	}
	if cfg.Catalog.FilterDebounce, err = parseDurationEnv("FILTER_DEBOUNCE", "300ms"); err != nil {
		return nil, fmt.Errorf("invalid FILTER_DEBOUNCE: %w", err)
	}
	if cfg.Credential.TTL, err = parseDurationEnv("CREDENTIAL_TTL", "720h"); err != nil {
		return nil, fmt.Errorf("invalid CREDENTIAL_TTL: %w", err)
	}
	if cfg.Worker.ReloadInterval, err = parseDurationEnv("RELOAD_INTERVAL", "0s"); err != nil {
		return nil, fmt.Errorf("invalid RELOAD_INTERVAL: %w", err)
	}

	if cfg.Catalog.DefaultPageSize < 1 || cfg.Catalog.DefaultPageSize > 100 {
		return nil, errors.New("DEFAULT_PAGE_SIZE must be between 1 and 100")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	// Cached credentials are sealed; refuse to cache them without a key.
	if cfg.Redis.Host != "" && cfg.Credential.Secret == "" {
		return nil, errors.New("CREDENTIAL_SECRET must be set when REDIS_HOST is configured")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
