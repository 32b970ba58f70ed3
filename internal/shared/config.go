package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	HTTP        HTTPConfig        `toml:"http"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
}

// SyncConfig controls the reconciliation pass.
type SyncConfig struct {
	FallbackTitle string `toml:"fallback_title"`
	Description   string `toml:"description"`
	StatePath     string `toml:"state_path"`
	ItemFallback  bool   `toml:"item_fallback"`
}

// HTTPConfig tunes the request engine.
type HTTPConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	BaseDelayMS    int     `toml:"base_delay_ms"`
	RateLimit      float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Timeout returns the per-attempt request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// BaseDelay returns the first exponential backoff delay.
func (h HTTPConfig) BaseDelay() time.Duration {
	return time.Duration(h.BaseDelayMS) * time.Millisecond
}

// Update stores the refresh token from a completed authorization flow.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	s.RefreshToken = token.RefreshToken
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and atomically replaces the file at path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// atomic.WriteFile keeps the mode of an existing file but not for new ones
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	return nil
}

// ApplyEnv overrides configuration values with any set environment variables.
//
// lookup defaults to [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken},
		{"SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI},
		{"LIKESYNC_FALLBACK_TITLE", &c.Sync.FallbackTitle},
		{"LIKESYNC_STATE_PATH", &c.Sync.StatePath},
		{"LIKESYNC_DATABASE_PATH", &c.Database.Path},
	}

	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// Validate checks the settings a reconciliation pass cannot run without.
func (c *Config) Validate() error {
	var missing []string

	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "credentials.spotify.client_id")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "credentials.spotify.client_secret")
	}
	if c.Credentials.Spotify.RefreshToken == "" {
		missing = append(missing, "credentials.spotify.refresh_token")
	}
	if c.Sync.StatePath == "" {
		missing = append(missing, "sync.state_path")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.HTTP.TimeoutSeconds <= 0 || c.HTTP.MaxRetries < 0 || c.HTTP.BaseDelayMS < 0 {
		return fmt.Errorf("%w: http settings must be positive", ErrInvalidConfig)
	}

	return nil
}
