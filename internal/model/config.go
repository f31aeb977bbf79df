package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig identifies the Tracim instance and the account used.
type ServerConfig struct {
	// BaseURL is the root URL of the Tracim instance (without /api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Username is the login sent with the API key.
	Username string `mapstructure:"username" yaml:"username"`

	// UserID is the numeric id of the account whose feed is shown.
	UserID int `mapstructure:"user_id" yaml:"user_id"`

	// RequestsPerSecond caps the client-side request rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// FeedConfig holds activity feed tuning.
type FeedConfig struct {
	// WorkspaceID restricts the feed to one workspace when non-zero.
	WorkspaceID int `mapstructure:"workspace_id" yaml:"workspace_id"`

	// ActivitiesPerPage is how many activities one "load more" asks for.
	ActivitiesPerPage int `mapstructure:"activities_per_page" yaml:"activities_per_page"`

	// PollIntervalSec is how often live events are polled.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// CacheConfig configures the optional Redis content cache.
type CacheConfig struct {
	// RedisAddr is host:port of the Redis server; empty disables caching.
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db"`
	TTLSec    int    `mapstructure:"ttl_sec" yaml:"ttl_sec"`
}

// StoreConfig configures local persistence.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Feed    FeedConfig    `mapstructure:"feed" yaml:"feed"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// IsConfigured reports whether enough is known to reach the server.
func (c *AppConfig) IsConfigured() bool {
	return c.Server.BaseURL != "" && c.Server.Username != "" && c.Server.UserID > 0
}

// configDir returns ~/.config/tracimfeed, falling back to the working
// directory when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tracimfeed")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tracimfeed/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			RequestsPerSecond: 10,
		},
		Feed: FeedConfig{
			ActivitiesPerPage: 15,
			PollIntervalSec:   15,
		},
		Cache: CacheConfig{
			TTLSec: 300,
		},
		Store: StoreConfig{
			Path: filepath.Join(configDir(), "feed.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(configDir(), "tracimfeed.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRACIMFEED")
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.requests_per_second", defaults.Server.RequestsPerSecond)
	v.SetDefault("feed.activities_per_page", defaults.Feed.ActivitiesPerPage)
	v.SetDefault("feed.poll_interval_sec", defaults.Feed.PollIntervalSec)
	v.SetDefault("cache.ttl_sec", defaults.Cache.TTLSec)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("display.theme", defaults.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Feed.ActivitiesPerPage <= 0 {
		cfg.Feed.ActivitiesPerPage = defaults.Feed.ActivitiesPerPage
	}
	if cfg.Feed.PollIntervalSec <= 0 {
		cfg.Feed.PollIntervalSec = defaults.Feed.PollIntervalSec
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

	v.Set("server", cfg.Server)
	v.Set("feed", cfg.Feed)
	v.Set("cache", cfg.Cache)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
