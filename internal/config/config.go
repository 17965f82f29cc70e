package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "QCACHE"

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Query   QueryConfig   `mapstructure:"query"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig names where themes are read from
type SourceConfig struct {
	File string `mapstructure:"file"` // JSON array of theme records
	Site string `mapstructure:"site"` // Cache partition; snapshots of different sites never mix
}

// CacheConfig holds snapshot persistence settings
type CacheConfig struct {
	Dir     string        `mapstructure:"dir"`
	Enabled bool          `mapstructure:"enabled"`
	MaxAge  time.Duration `mapstructure:"max_age"` // Snapshots younger than this are not re-fetched
}

// QueryConfig holds fetch and manager settings
type QueryConfig struct {
	PerPage     int  `mapstructure:"per_page"`
	Concurrency int  `mapstructure:"concurrency"`
	Reindex     bool `mapstructure:"reindex"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			File: "themes.json",
			Site: "example.wordpress.com",
		},
		Cache: CacheConfig{
			Dir:     defaultCachePath(),
			Enabled: true,
			MaxAge:  time.Hour,
		},
		Query: QueryConfig{
			PerPage:     20,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the per-user data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "qcache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "qcache")
	}
}

func defaultLogPath() string {
	return filepath.Join(defaultDataPath(), "qcache.log")
}

func defaultCachePath() string {
	return filepath.Join(defaultDataPath(), "cache")
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "qcache")
	}
	return "."
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("source.file", cfg.Source.File)
	v.SetDefault("source.site", cfg.Source.Site)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.max_age", cfg.Cache.MaxAge)
	v.SetDefault("query.per_page", cfg.Query.PerPage)
	v.SetDefault("query.concurrency", cfg.Query.Concurrency)
	v.SetDefault("query.reindex", cfg.Query.Reindex)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	return v
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the user config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides (QCACHE_QUERY_PER_PAGE)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML. An empty path writes config.yaml in the
// user config directory.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(defaultConfigPath(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(cfg)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// GetCachePath returns the cache directory, or "" when caching is disabled
func (c *Config) GetCachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	dir, err := ExpandPath(c.Cache.Dir)
	if err != nil {
		return ""
	}
	return dir
}

// ClearCache removes all cached data
func (c *Config) ClearCache() error {
	cachePath := c.GetCachePath()
	if cachePath == "" {
		return nil
	}
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
