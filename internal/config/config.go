// Package config loads tunetalk settings from .env files, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tunetalk/tunetalk/internal/ai"
)

const (
	DirName     = "tunetalk"
	FileName    = "config.yaml"
	EnvFileName = ".env"

	EnvConfigDir           = "TUNETALK_CONFIG_DIR"
	EnvProvider            = "TUNETALK_PROVIDER"
	EnvModel               = "TUNETALK_MODEL"
	EnvSpotifyClientID     = "SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvSpotifyRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvSentryDSN           = "SENTRY_DSN"

	// DefaultRedirectURI is suggested by setup. It is never assumed.
	DefaultRedirectURI    = "http://127.0.0.1:8808/callback"
	DefaultTrackLimit     = 40
	DefaultMaxAttempts    = 5
	DefaultHistoryWindow  = 6
	DefaultPlaylistName   = "AI Generated Vibes"
	DefaultRequestTimeout = 60 * time.Second
)

// ErrMissingCredentials is matched by *MissingCredentialsError.
var ErrMissingCredentials = errors.New("missing credentials")

// MissingCredentialsError names every required value that is unset.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing credentials: " + strings.Join(e.Names, ", ")
}

func (e *MissingCredentialsError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// Config is the merged view of every settings source.
type Config struct {
	Provider            string        `yaml:"provider"`
	Model               string        `yaml:"model"`
	TrackLimit          int           `yaml:"track_limit"`
	MaxAttempts         int           `yaml:"max_attempts"`
	HistoryWindow       int           `yaml:"history_window"`
	Public              bool          `yaml:"public"`
	DefaultPlaylistName string        `yaml:"default_playlist_name"`
	Confirm             bool          `yaml:"confirm"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`

	SpotifyClientID     string `yaml:"-"`
	SpotifyClientSecret string `yaml:"-"`
	SpotifyRedirectURI  string `yaml:"-"`
	GeminiAPIKey        string `yaml:"-"`
	OpenAIAPIKey        string `yaml:"-"`
	SentryDSN           string `yaml:"-"`

	// Dir holds config.yaml, .env and the stored Spotify token.
	Dir string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:            ai.ProviderGemini,
		TrackLimit:          DefaultTrackLimit,
		MaxAttempts:         DefaultMaxAttempts,
		HistoryWindow:       DefaultHistoryWindow,
		DefaultPlaylistName: DefaultPlaylistName,
		RequestTimeout:      DefaultRequestTimeout,
	}
}

// Dir returns the configuration directory, ~/.config/tunetalk unless
// TUNETALK_CONFIG_DIR is set.
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", DirName), nil
}

// Load merges .env files, the YAML file and the environment. An empty
// path means dir/config.yaml, which may be absent; an explicit path must
// exist.
func Load(dir, path string) (Config, error) {
	if err := loadDotEnv(EnvFileName, filepath.Join(dir, EnvFileName)); err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Dir = dir

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// loadDotEnv loads each existing file. Variables already in the
// environment win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) readFile(path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Provider, EnvProvider)
	setFromEnv(&c.Model, EnvModel)
	setFromEnv(&c.SpotifyClientID, EnvSpotifyClientID)
	setFromEnv(&c.SpotifyClientSecret, EnvSpotifyClientSecret)
	setFromEnv(&c.SpotifyRedirectURI, EnvSpotifyRedirectURI)
	setFromEnv(&c.GeminiAPIKey, EnvGeminiAPIKey)
	setFromEnv(&c.OpenAIAPIKey, EnvOpenAIAPIKey)
	setFromEnv(&c.SentryDSN, EnvSentryDSN)
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// APIKey returns the key for the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ai.ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// APIKeyEnv names the variable holding the selected provider's key.
func (c Config) APIKeyEnv() string {
	if c.Provider == ai.ProviderOpenAI {
		return EnvOpenAIAPIKey
	}
	return EnvGeminiAPIKey
}

// Generator returns the model gateway options for this configuration.
func (c Config) Generator() ai.Options {
	return ai.Options{Provider: c.Provider, APIKey: c.APIKey(), Model: c.Model}
}

// RequireSpotify fails when a Spotify credential is unset.
func (c Config) RequireSpotify() error {
	return c.require(
		[2]string{EnvSpotifyClientID, c.SpotifyClientID},
		[2]string{EnvSpotifyClientSecret, c.SpotifyClientSecret},
		[2]string{EnvSpotifyRedirectURI, c.SpotifyRedirectURI},
	)
}

// RequireModel fails when the selected provider's API key is unset.
func (c Config) RequireModel() error {
	return c.require([2]string{c.APIKeyEnv(), c.APIKey()})
}

// RequireCredentials fails when any of the three Spotify values or the
// selected provider's API key is unset.
func (c Config) RequireCredentials() error {
	return c.require(
		[2]string{EnvSpotifyClientID, c.SpotifyClientID},
		[2]string{EnvSpotifyClientSecret, c.SpotifyClientSecret},
		[2]string{EnvSpotifyRedirectURI, c.SpotifyRedirectURI},
		[2]string{c.APIKeyEnv(), c.APIKey()},
	)
}

func (c Config) require(pairs ...[2]string) error {
	var missing []string
	for _, p := range pairs {
		if strings.TrimSpace(p[1]) == "" {
			missing = append(missing, p[0])
		}
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Names: missing}
	}
	return nil
}

// Save writes the YAML settings to dir/config.yaml.
func (c Config) Save() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveEnv merges values into dir/.env with owner-only permissions.
func SaveEnv(dir string, values map[string]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, EnvFileName)

	merged := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		merged = existing
	}
	for k, v := range values {
		if v != "" {
			merged[k] = v
		}
	}
	if err := godotenv.Write(merged, path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("failed to secure %s: %w", path, err)
	}
	return path, nil
}
