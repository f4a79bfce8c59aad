// Package config provides environment-driven configuration for the CLI and
// the collaborator adapters.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the collaborator endpoints and session settings. Values are
// read from APPLYPILOT_* environment variables; a .env file is honored by
// the CLI entry point.
type Config struct {
	// Collaborators
	DatabaseURL string // PostgreSQL connection URL (required)
	RedisURL    string // Redis URL for the change feed (required)

	// Object storage: S3 when a bucket is set, local filesystem otherwise.
	S3Bucket       string
	S3Region       string
	StorageDir     string
	StorageBaseURL string

	// Session
	JWTSecret string // HMAC secret for session tokens (required)
	Token     string // Current session token; empty means signed out

	// Views
	TopRecommendations int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("APPLYPILOT_DATABASE_URL"),
		RedisURL:           os.Getenv("APPLYPILOT_REDIS_URL"),
		S3Bucket:           os.Getenv("APPLYPILOT_S3_BUCKET"),
		S3Region:           os.Getenv("APPLYPILOT_S3_REGION"),
		StorageDir:         os.Getenv("APPLYPILOT_STORAGE_DIR"),
		StorageBaseURL:     os.Getenv("APPLYPILOT_STORAGE_BASE_URL"),
		JWTSecret:          os.Getenv("APPLYPILOT_JWT_SECRET"),
		Token:              os.Getenv("APPLYPILOT_TOKEN"),
		TopRecommendations: 10,
	}

	if v := os.Getenv("APPLYPILOT_TOP_RECOMMENDATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid APPLYPILOT_TOP_RECOMMENDATIONS: %w", err)
		}
		cfg.TopRecommendations = n
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = "data/resumes"
	}
	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = "http://localhost:8080/resumes"
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *Config) normalize() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("APPLYPILOT_DATABASE_URL is required but not set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("APPLYPILOT_REDIS_URL is required but not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("APPLYPILOT_JWT_SECRET is required but not set")
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return fmt.Errorf("APPLYPILOT_S3_REGION is required when APPLYPILOT_S3_BUCKET is set")
	}
	if c.TopRecommendations < 1 {
		return fmt.Errorf("APPLYPILOT_TOP_RECOMMENDATIONS must be at least 1, got: %d", c.TopRecommendations)
	}
	return nil
}
