// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/volume"
)

// Default configuration values.
const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultMediaPath     = "/media"
	DefaultSampleRate    = 44100
	DefaultDefaultVolume = "0.5"
)

// Config represents the earplay configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Retry  RetryConfig  `toml:"retry"`
	Audio  AudioConfig  `toml:"audio"`
	Daemon DaemonConfig `toml:"daemon"`
}

// ServerConfig describes where assets are fetched from.
type ServerConfig struct {
	BaseURL   string   `toml:"base_url" env:"EARPLAY_BASE_URL"`     // Relative URLs resolve against this
	MediaPath string   `toml:"media_path" env:"EARPLAY_MEDIA_PATH"` // Media root for interval assets
	Timeout   Duration `toml:"timeout" env:"EARPLAY_TIMEOUT"`       // 0 = no timeout
	UserAgent string   `toml:"user_agent" env:"EARPLAY_USER_AGENT"`
}

// RetryConfig bounds retries while an asset is still being generated.
type RetryConfig struct {
	MaxRetries int      `toml:"max_retries" env:"EARPLAY_MAX_RETRIES"`
	Delay      Duration `toml:"delay" env:"EARPLAY_RETRY_DELAY"`
	Strategy   string   `toml:"strategy" env:"EARPLAY_RETRY_STRATEGY"` // constant, exponential
	MaxDelay   Duration `toml:"max_delay" env:"EARPLAY_RETRY_MAX_DELAY"`
}

// AudioConfig contains output device settings.
type AudioConfig struct {
	SampleRate    int      `toml:"sample_rate" env:"EARPLAY_SAMPLE_RATE"`
	BufferSize    Duration `toml:"buffer_size" env:"EARPLAY_BUFFER_SIZE"`
	DefaultVolume string   `toml:"default_volume" env:"EARPLAY_DEFAULT_VOLUME"` // Used until a volume is stored
}

// DaemonConfig contains earplayd settings.
type DaemonConfig struct {
	// WatchPrefs re-applies the stored volume when another process changes it.
	WatchPrefs bool `toml:"watch_prefs" env:"EARPLAY_WATCH_PREFS"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   DefaultBaseURL,
			MediaPath: DefaultMediaPath,
			Timeout:   0,
			UserAgent: audio.DefaultUserAgent,
		},
		Retry: RetryConfig{
			MaxRetries: audio.DefaultMaxRetries,
			Delay:      Duration(audio.DefaultRetryDelay),
			Strategy:   string(audio.StrategyConstant),
		},
		Audio: AudioConfig{
			SampleRate:    DefaultSampleRate,
			BufferSize:    Duration(audio.DefaultBufferSize),
			DefaultVolume: DefaultDefaultVolume,
		},
		Daemon: DaemonConfig{
			WatchPrefs: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "earplay", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "earplay")
}

// PrefsPath returns the path to the persisted preferences file.
func PrefsPath() string {
	return filepath.Join(DataPath(), "prefs.json")
}

// LoadConfig loads configuration from the specified path, then applies
// EARPLAY_* environment overrides.
// If path is empty, uses the default config path.
// Missing files yield the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url must not be empty")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout.Duration())
	}

	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}

	if _, err := volume.Parse(c.Audio.DefaultVolume); err != nil {
		return fmt.Errorf("audio.default_volume: %w", err)
	}

	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	return nil
}

// RetryPolicy converts the retry section to the player's policy.
func (c *Config) RetryPolicy() audio.RetryPolicy {
	return audio.RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		Delay:      c.Retry.Delay.Duration(),
		Strategy:   audio.Strategy(c.Retry.Strategy),
		MaxDelay:   c.Retry.MaxDelay.Duration(),
	}
}

// FetchTimeout returns the HTTP client timeout, 0 for none.
func (c *Config) FetchTimeout() time.Duration {
	return c.Server.Timeout.Duration()
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
