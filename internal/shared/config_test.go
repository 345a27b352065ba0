package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./cleanify.db" {
			t.Errorf("expected database path ./cleanify.db, got %s", config.Database.Path)
		}

		if config.Worker.PollInterval != "1m" {
			t.Errorf("expected poll interval 1m, got %s", config.Worker.PollInterval)
		}

		if config.Worker.MaxParallel != 4 {
			t.Errorf("expected max parallel 4, got %d", config.Worker.MaxParallel)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}
	})

	t.Run("CreateConfigFile refuses to overwrite", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("expected error when config file already exists")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "abc123"
		config.Credentials.Spotify.AccessToken = "token123"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "abc123" {
			t.Errorf("expected client_id abc123, got %s", loaded.Credentials.Spotify.ClientID)
		}
		if loaded.Credentials.Spotify.AccessToken != "token123" {
			t.Errorf("expected access token to survive round trip, got %s", loaded.Credentials.Spotify.AccessToken)
		}
	})
}

func TestSpotifyConfigTokens(t *testing.T) {
	t.Run("Update stores tokens", func(t *testing.T) {
		config := &SpotifyConfig{}
		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

		err := config.Update(&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       expiry,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.AccessToken != "access" || config.RefreshToken != "refresh" {
			t.Error("expected tokens to be stored")
		}

		token := config.Token()
		if token == nil {
			t.Fatal("expected token to be reconstructed")
		}
		if !token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
		}
	})

	t.Run("Update keeps existing refresh token", func(t *testing.T) {
		config := &SpotifyConfig{RefreshToken: "original"}

		if err := config.Update(&oauth2.Token{AccessToken: "access"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.RefreshToken != "original" {
			t.Errorf("expected refresh token to be kept, got %s", config.RefreshToken)
		}
	})

	t.Run("Update rejects empty token", func(t *testing.T) {
		config := &SpotifyConfig{}

		if err := config.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}
		if err := config.Update(&oauth2.Token{}); err == nil {
			t.Error("expected error for empty token")
		}
	})

	t.Run("Token returns nil when unset", func(t *testing.T) {
		config := &SpotifyConfig{}

		if config.Token() != nil {
			t.Error("expected nil token when no access token stored")
		}
	})

	t.Run("Map returns credential map", func(t *testing.T) {
		config := &SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "http://localhost:8080/callback",
		}

		m := config.Map()
		if m["client_id"] != "id" || m["client_secret"] != "secret" {
			t.Error("expected credentials in map")
		}
		if m["redirect_uri"] != "http://localhost:8080/callback" {
			t.Error("expected redirect_uri in map")
		}
	})
}
