package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/cricket-live/internal/archive"
	"github.com/AdamBeresnev/cricket-live/internal/db"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int

	CORSAllowedOrigins []string
	LogLevel           slog.Level
	RealtimeEnabled    bool

	// R2 is nil when scorecard archiving is not configured.
	R2 *archive.R2Config
}

// Load reads the environment, after a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		DatabaseDriver: envOr("DATABASE_DRIVER", db.DriverSQLite),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecretKey:   os.Getenv("JWT_SECRET_KEY"),
	}

	switch cfg.DatabaseDriver {
	case db.DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "file:cricket.db?_txlock=immediate"
		}
	case db.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(envOr("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	for _, origin := range strings.Split(envOr("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg.RealtimeEnabled, err = strconv.ParseBool(envOr("REALTIME_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid REALTIME_ENABLED: %w", err)
	}

	if bucket := os.Getenv("R2_BUCKET_NAME"); bucket != "" {
		cfg.R2 = &archive.R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      bucket,
			Endpoint:        os.Getenv("R2_ENDPOINT"),
		}
		if cfg.R2.AccessKeyID == "" || cfg.R2.SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required with R2_BUCKET_NAME")
		}
		if cfg.R2.AccountID == "" && cfg.R2.Endpoint == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID or R2_ENDPOINT is required with R2_BUCKET_NAME")
		}
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
