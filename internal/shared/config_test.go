package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./likesync.db" {
			t.Errorf("expected database path ./likesync.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.HTTP.MaxRetries != 4 {
			t.Errorf("expected 4 retries, got %d", config.HTTP.MaxRetries)
		}
		if config.HTTP.Timeout().Seconds() != 15 {
			t.Errorf("expected 15s timeout, got %v", config.HTTP.Timeout())
		}
		if config.HTTP.BaseDelay().Milliseconds() != 500 {
			t.Errorf("expected 500ms base delay, got %v", config.HTTP.BaseDelay())
		}
		if config.Sync.ItemFallback {
			t.Error("expected item fallback to be disabled by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Sync.StatePath != DefaultConfig().Sync.StatePath {
			t.Errorf("created config state path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
refresh_token = "test_refresh"

[sync]
state_path = "/tmp/state.json"
item_fallback = true

[http]
max_retries = 2
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if !config.Sync.ItemFallback {
			t.Error("expected item_fallback to be true")
		}
		if config.HTTP.MaxRetries != 2 {
			t.Errorf("expected max_retries 2, got %d", config.HTTP.MaxRetries)
		}
		if config.HTTP.TimeoutSeconds != 15 {
			t.Errorf("expected unset timeout to keep default, got %d", config.HTTP.TimeoutSeconds)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[sync\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.RefreshToken = "saved_refresh"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Credentials.Spotify.RefreshToken != "saved_refresh" {
			t.Errorf("expected refresh token to round trip, got %q", loaded.Credentials.Spotify.RefreshToken)
		}

		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("failed to stat config: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SPOTIFY_CLIENT_ID":     "env_id",
			"SPOTIFY_REFRESH_TOKEN": "  env_refresh  ",
			"LIKESYNC_STATE_PATH":   "",
		}
		lookup := func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}

		config := DefaultConfig()
		config.ApplyEnv(lookup)

		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.RefreshToken != "env_refresh" {
			t.Errorf("expected trimmed env refresh token, got %q", config.Credentials.Spotify.RefreshToken)
		}
		if config.Sync.StatePath != DefaultConfig().Sync.StatePath {
			t.Errorf("expected empty env value to be ignored, got %s", config.Sync.StatePath)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("missing refresh token", func(t *testing.T) {
			config := DefaultConfig()
			err := config.Validate()
			if !errors.Is(err, ErrMissingConfig) {
				t.Fatalf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("complete config", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.RefreshToken = "refresh"
			if err := config.Validate(); err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
		})

		t.Run("invalid http settings", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.RefreshToken = "refresh"
			config.HTTP.TimeoutSeconds = 0
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("SpotifyConfig Update", func(t *testing.T) {
		var sc SpotifyConfig
		if err := sc.Update(&oauth2.Token{AccessToken: "a"}); !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
		if err := sc.Update(&oauth2.Token{RefreshToken: "r"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sc.RefreshToken != "r" {
			t.Errorf("expected refresh token r, got %s", sc.RefreshToken)
		}
	})
}
