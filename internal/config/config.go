// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultRedirectURL = "http://127.0.0.1:8080/callback"
)

// Config holds all runtime configuration.
type Config struct {
	Addr                string
	DatabaseURL         string
	SpotifyClientID     string
	SpotifyClientSecret string
	RedirectURL         string
	LogLevel            string
}

// Load reads configuration from the environment, loading a .env file first
// if one is present. A missing required variable is reported by name.
func Load() (*Config, error) {
	// Best effort: running without a .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                getEnv("ADDR", DefaultAddr),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RedirectURL:         getEnv("SPOTIFY_REDIRECT_URL", DefaultRedirectURL),
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}

	for name, value := range map[string]string{
		"DATABASE_URL":          cfg.DatabaseURL,
		"SPOTIFY_CLIENT_ID":     cfg.SpotifyClientID,
		"SPOTIFY_CLIENT_SECRET": cfg.SpotifyClientSecret,
	} {
		if value == "" {
			return nil, fmt.Errorf("missing %s environment variable", name)
		}
	}

	return cfg, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
