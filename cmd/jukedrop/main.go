// Command jukedrop runs the song-request submission server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jukedrop/jukedrop/internal/api"
	"github.com/jukedrop/jukedrop/internal/config"
	"github.com/jukedrop/jukedrop/internal/db"
	"github.com/jukedrop/jukedrop/internal/moderation"
	"github.com/jukedrop/jukedrop/internal/session"
	"github.com/jukedrop/jukedrop/internal/spotify"
	"github.com/jukedrop/jukedrop/internal/submission"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	spotifyClient := spotify.New(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.RedirectURL,
	}, logger)

	submissions := submission.NewService(
		database.Submissions(),
		database.Requests(),
		spotifyClient,
		logger,
	)
	engine := moderation.NewEngine(
		database.Submissions(),
		database.Requests(),
		spotifyClient,
		logger,
	)

	server := api.NewServer(api.ServerConfig{
		Addr:        cfg.Addr,
		Sessions:    session.NewPGStore(database),
		Spotify:     spotifyClient,
		Submissions: submissions,
		Moderation:  engine,
		Users:       database.Users(),
		Log:         logger,
	})
	return server.Run()
}

// newLogger builds the production logger, honoring LOG_LEVEL when set.
func newLogger(logLevel string) *zap.SugaredLogger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if logLevel != "" {
		parsed, err := zap.ParseAtomicLevel(logLevel)
		if err != nil {
			log.Fatalf("Error parsing log level %s: %v", logLevel, err)
		}
		level = parsed
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	return zap.Must(cfg.Build()).Sugar()
}
