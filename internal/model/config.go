package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the marketplace REST backend.
type APIConfig struct {
	// BaseURL is the root URL of the API (e.g., https://api.bidrr.ca).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RequestsPerSec caps outbound request rate for this client.
	RequestsPerSec int `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

// PollConfig controls badge resynchronization.
type PollConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// StoreConfig locates the local inbox cache.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API   APIConfig   `mapstructure:"api" yaml:"api"`
	Poll  PollConfig  `mapstructure:"poll" yaml:"poll"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// PollInterval returns the configured poll interval as a duration.
func (c *AppConfig) PollInterval() time.Duration {
	if c.Poll.IntervalSec <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Poll.IntervalSec) * time.Second
}

// RequestTimeout returns the configured per-request timeout.
func (c *AppConfig) RequestTimeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// DefaultPollInterval is how often badges are resynchronized with the
// server when no interval is configured.
const DefaultPollInterval = 60 * time.Second

const defaultBaseURL = "https://api.bidrr.ca"

// ConfigDir returns ~/.config/bidboard, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bidboard")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:        defaultBaseURL,
			TimeoutSec:     30,
			RequestsPerSec: 10,
		},
		Poll: PollConfig{
			IntervalSec: int(DefaultPollInterval / time.Second),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "bidboard.log"),
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "inbox.db"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with BIDBOARD_ override file values
// (e.g., BIDBOARD_API_BASE_URL). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("bidboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout_sec", defaults.API.TimeoutSec)
	v.SetDefault("api.requests_per_sec", defaults.API.RequestsPerSec)
	v.SetDefault("poll.interval_sec", defaults.Poll.IntervalSec)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("store.path", defaults.Store.Path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	if cfg.Poll.IntervalSec <= 0 {
		cfg.Poll.IntervalSec = defaults.Poll.IntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("poll", cfg.Poll)
	v.Set("log", cfg.Log)
	v.Set("store", cfg.Store)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
