// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Storage StorageConfig `mapstructure:"storage"`
	Source  SourceConfig  `mapstructure:"source"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HarvestConfig governs task execution.
type HarvestConfig struct {
	// DefaultCount is used when a submission omits the note count.
	DefaultCount int `mapstructure:"default_count"`
	// MaxCount caps the requested note count per task.
	MaxCount int `mapstructure:"max_count"`
	// ItemDelaySeconds is the pause between successive note extractions.
	ItemDelaySeconds int `mapstructure:"item_delay_seconds"`
}

// StorageConfig sets the location for result artifacts.
type StorageConfig struct {
	ResultsDir string `mapstructure:"results_dir"`
}

// SourceConfig configures the content-source HTTP client.
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTEHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8888)
	v.SetDefault("harvest.default_count", 10)
	v.SetDefault("harvest.max_count", 100)
	v.SetDefault("harvest.item_delay_seconds", 1)
	v.SetDefault("storage.results_dir", "web_data")
	v.SetDefault("source.timeout_seconds", 15)
	v.SetDefault("source.user_agent", "noteharvest/0.1")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Harvest.DefaultCount <= 0 {
		return fmt.Errorf("harvest.default_count must be > 0")
	}
	if c.Harvest.MaxCount < c.Harvest.DefaultCount {
		return fmt.Errorf("harvest.max_count must be >= harvest.default_count")
	}
	if c.Harvest.ItemDelaySeconds < 0 {
		return fmt.Errorf("harvest.item_delay_seconds must be >= 0")
	}
	if strings.TrimSpace(c.Storage.ResultsDir) == "" {
		return fmt.Errorf("storage.results_dir must be set")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	return nil
}

// ItemDelay converts the configured inter-item delay into a duration.
func (c Config) ItemDelay() time.Duration {
	return time.Duration(c.Harvest.ItemDelaySeconds) * time.Second
}

// SourceTimeout converts the source timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}
