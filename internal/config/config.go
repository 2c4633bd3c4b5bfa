package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FailClosed = "closed"
	FailOpen   = "open"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Moderation ModerationConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port          string
	PublicBaseURL string
	AllowedOrigin string
	Environment   string
}

type DatabaseConfig struct {
	Driver string // postgres | sqlite
	DSN    string
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret      string
	TTL         time.Duration
	RequireAuth bool
}

type ModerationConfig struct {
	BaseURL       string
	APIUser       string
	APISecret     string
	Lang          string
	Timeout       time.Duration
	FailurePolicy string

	// UnsupportedMediaPolicy applies to audio and unknown file types.
	UnsupportedMediaPolicy string
}

type StorageConfig struct {
	UploadsDir string
}

type LogConfig struct {
	Level string
}

// Load reads .env.local / .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "3001"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3001"), "/"),
			AllowedOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
			Environment:   getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			DSN:    os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		JWT: JWTConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			TTL:         getEnvAsDuration("JWT_TTL", 24*time.Hour),
			RequireAuth: getEnvAsBool("WS_REQUIRE_AUTH", false),
		},
		Moderation: ModerationConfig{
			BaseURL:                strings.TrimRight(getEnv("MODERATION_BASE_URL", "https://api.sightengine.com"), "/"),
			APIUser:                os.Getenv("MODERATION_API_USER"),
			APISecret:              os.Getenv("MODERATION_API_SECRET"),
			Lang:                   getEnv("MODERATION_LANG", "en"),
			Timeout:                getEnvAsDuration("MODERATION_TIMEOUT", 5*time.Second),
			FailurePolicy:          strings.ToLower(getEnv("MODERATION_FAILURE_POLICY", FailClosed)),
			UnsupportedMediaPolicy: strings.ToLower(getEnv("MODERATION_UNSUPPORTED_MEDIA_POLICY", FailOpen)),
		},
		Storage: StorageConfig{
			UploadsDir: getEnv("UPLOADS_DIR", "./uploads"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Moderation.APIUser == "" || c.Moderation.APISecret == "" {
		return fmt.Errorf("moderation credentials must be set")
	}
	if c.Moderation.FailurePolicy != FailClosed && c.Moderation.FailurePolicy != FailOpen {
		return fmt.Errorf("unknown MODERATION_FAILURE_POLICY %q", c.Moderation.FailurePolicy)
	}
	if c.Moderation.UnsupportedMediaPolicy != FailClosed && c.Moderation.UnsupportedMediaPolicy != FailOpen {
		return fmt.Errorf("unknown MODERATION_UNSUPPORTED_MEDIA_POLICY %q", c.Moderation.UnsupportedMediaPolicy)
	}
	if c.JWT.RequireAuth && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set when WS_REQUIRE_AUTH is enabled")
	}
	return nil
}

// IsDevelopment reports whether the relay runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
