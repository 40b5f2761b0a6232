// Package config loads arxiv-export settings from defaults, an optional
// config.yaml and ARXIV_EXPORT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/cache"
	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/exporter"
	"github.com/Epistemic-Technology/arxiv-export/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// ARXIV_EXPORT_API_PAGE_SIZE.
const EnvPrefix = "ARXIV_EXPORT"

// Config holds all settings.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Export ExportConfig `mapstructure:"export"`
	Log    LogConfig    `mapstructure:"log"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// APIConfig configures the arXiv API client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit time.Duration `mapstructure:"rate_limit"`
	PageSize  int           `mapstructure:"page_size"`
	UserAgent string        `mapstructure:"user_agent"`
	Retry     RetryConfig   `mapstructure:"retry"`
}

// RetryConfig configures backoff for transient API failures.
type RetryConfig struct {
	// MaxAttempts includes the first try. Zero disables retries.
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// ExportConfig configures export defaults.
type ExportConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	Format     string `mapstructure:"format"`
	MaxResults int    `mapstructure:"max_results"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig configures the on-disk response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Override adjusts a loaded Config before it is validated, typically from
// command-line flags.
type Override func(*Config)

// Load reads configuration. An empty configFile searches for config.yaml
// in the working directory and the user config directory; a missing file
// there is not an error. A named configFile must exist. Overrides run in
// order before validation.
func Load(configFile string, overrides ...Override) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "arxiv-export"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for _, override := range overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", arxiv.DefaultBaseURL)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.rate_limit", "3s")
	v.SetDefault("api.page_size", exporter.DefaultPageSize)
	v.SetDefault("api.user_agent", arxiv.DefaultUserAgent)
	v.SetDefault("api.retry.max_attempts", 3)
	v.SetDefault("api.retry.initial_interval", "1s")
	v.SetDefault("api.retry.max_interval", "30s")
	v.SetDefault("api.retry.multiplier", 2.0)

	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.format", "ris")
	v.SetDefault("export.max_results", exporter.MaxResults)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", cache.DefaultPath())
	v.SetDefault("cache.ttl", "1h")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	if c.API.PageSize < 1 || c.API.PageSize > arxiv.MaxPageSize {
		return fmt.Errorf("api page_size must be between 1 and %d, got %d", arxiv.MaxPageSize, c.API.PageSize)
	}
	if c.API.Timeout < 0 || c.API.RateLimit < 0 {
		return fmt.Errorf("api timeout and rate_limit must not be negative")
	}
	if c.API.Retry.MaxAttempts < 0 {
		return fmt.Errorf("api retry max_attempts must not be negative, got %d", c.API.Retry.MaxAttempts)
	}
	if c.API.Retry.InitialInterval < 0 || c.API.Retry.MaxInterval < 0 {
		return fmt.Errorf("api retry intervals must not be negative")
	}
	if c.API.Retry.Multiplier < 0 {
		return fmt.Errorf("api retry multiplier must not be negative, got %g", c.API.Retry.Multiplier)
	}

	if c.Export.MaxResults < 1 || c.Export.MaxResults > exporter.MaxResults {
		return fmt.Errorf("export max_results must be between 1 and %d, got %d", exporter.MaxResults, c.Export.MaxResults)
	}
	if _, err := c.Export.ExportFormat(); err != nil {
		return err
	}

	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "pretty", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache path is required when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}

// ExportFormat parses the configured default format.
func (c *ExportConfig) ExportFormat() (citation.Format, error) {
	return citation.ParseFormat(c.Format)
}

// ClientOptions returns arxiv client options for the API settings.
func (c *APIConfig) ClientOptions() []arxiv.ClientOption {
	opts := []arxiv.ClientOption{
		arxiv.WithBaseURL(c.BaseURL),
		arxiv.WithTimeout(c.Timeout),
		arxiv.WithRateLimit(c.RateLimit),
		arxiv.WithUserAgent(c.UserAgent),
	}
	if c.Retry.MaxAttempts > 1 {
		opts = append(opts, arxiv.WithRetry(arxiv.RetryConfig{
			MaxAttempts:     c.Retry.MaxAttempts,
			InitialInterval: c.Retry.InitialInterval,
			MaxInterval:     c.Retry.MaxInterval,
			Multiplier:      c.Retry.Multiplier,
		}))
	}
	return opts
}

// Logging returns the logger configuration.
func (c *LogConfig) Logging() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format}
}
