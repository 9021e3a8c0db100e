package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Harvest.DefaultCount)
	assert.Equal(t, 100, cfg.Harvest.MaxCount)
	assert.Equal(t, 1, cfg.Harvest.ItemDelaySeconds)
	assert.Equal(t, "web_data", cfg.Storage.ResultsDir)
	assert.Equal(t, 15, cfg.Source.TimeoutSeconds)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
harvest:
  default_count: 5
  item_delay_seconds: 0
storage:
  results_dir: /tmp/results
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Harvest.DefaultCount)
	assert.Equal(t, 0, cfg.Harvest.ItemDelaySeconds)
	assert.Equal(t, "/tmp/results", cfg.Storage.ResultsDir)
	// Unset values keep their defaults.
	assert.Equal(t, 100, cfg.Harvest.MaxCount)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:  ServerConfig{Port: 8888},
		Harvest: HarvestConfig{DefaultCount: 10, MaxCount: 100, ItemDelaySeconds: 1},
		Storage: StorageConfig{ResultsDir: "web_data"},
		Source:  SourceConfig{TimeoutSeconds: 15},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroPort", func(c *Config) { c.Server.Port = 0 }},
		{"ZeroDefaultCount", func(c *Config) { c.Harvest.DefaultCount = 0 }},
		{"MaxBelowDefault", func(c *Config) { c.Harvest.MaxCount = 5 }},
		{"NegativeDelay", func(c *Config) { c.Harvest.ItemDelaySeconds = -1 }},
		{"BlankResultsDir", func(c *Config) { c.Storage.ResultsDir = "  " }},
		{"ZeroSourceTimeout", func(c *Config) { c.Source.TimeoutSeconds = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{
		Harvest: HarvestConfig{ItemDelaySeconds: 2},
		Source:  SourceConfig{TimeoutSeconds: 30},
	}
	assert.Equal(t, 2*time.Second, cfg.ItemDelay())
	assert.Equal(t, 30*time.Second, cfg.SourceTimeout())
}
