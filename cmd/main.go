package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/cleanify/internal/services"
	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	var spotifyService services.Service

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			if token := config.Credentials.Spotify.Token(); token != nil {
				svc.SetToken(token)
			}
			spotifyService = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    spotifyService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "cleanify",
		Usage:    "Create and sync clean copies of your playlists",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
