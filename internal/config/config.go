// Package config loads tool configuration from defaults, an optional YAML
// file, and environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/fabricmgr/fabricmgr/internal/logger"
)

// Config is the resolved tool configuration.
type Config struct {
	OutputDir      string        `yaml:"output_dir"`
	SubscriptionID string        `yaml:"subscription_id"`
	WorkspaceID    string        `yaml:"workspace_id"`
	TenantID       string        `yaml:"tenant_id"`
	ClientID       string        `yaml:"client_id"`
	Log            logger.Config `yaml:"log"`
	PowerBI        PowerBI       `yaml:"powerbi"`
}

// PowerBI configures the admin API client.
type PowerBI struct {
	BaseURL       string  `yaml:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "data",
		Log: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		PowerBI: PowerBI{
			BaseURL:       "https://api.powerbi.com/v1.0/myorg",
			RatePerSecond: 4,
			RateBurst:     8,
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".fabricmgr", "config.yaml")
}

// Load resolves configuration: defaults, then the YAML file at path if it
// exists, then FABRICMGR_* environment variables. An empty path means the
// default location; a missing file there is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No user config file; defaults apply.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FABRICMGR_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("FABRICMGR_SUBSCRIPTION_ID"); v != "" {
		c.SubscriptionID = v
	}
	if v := os.Getenv("FABRICMGR_WORKSPACE_ID"); v != "" {
		c.WorkspaceID = v
	}
	if v := os.Getenv("FABRICMGR_TENANT_ID"); v != "" {
		c.TenantID = v
	}
	if v := os.Getenv("FABRICMGR_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("FABRICMGR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FABRICMGR_POWERBI_URL"); v != "" {
		c.PowerBI.BaseURL = v
	}
	if v := os.Getenv("FABRICMGR_POWERBI_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate > 0 {
			c.PowerBI.RatePerSecond = rate
		}
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.PowerBI.BaseURL == "" {
		return fmt.Errorf("powerbi.base_url must not be empty")
	}
	if c.PowerBI.RatePerSecond <= 0 {
		return fmt.Errorf("powerbi.rate_per_second must be positive")
	}
	if c.PowerBI.RateBurst < 1 {
		c.PowerBI.RateBurst = 1
	}
	return nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
