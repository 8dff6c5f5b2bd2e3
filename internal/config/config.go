package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	FPL           FPLConfig  `yaml:"fpl"`
	HomeAssistant HAConfig   `yaml:"home_assistant,omitempty"`
	MQTT          MQTTConfig `yaml:"mqtt,omitempty"`

	// BackfillDays bounds how far back hourly statistics are fetched when a
	// series is empty. More than 15 days tends to get the requests blocked
	// by Cloudflare.
	BackfillDays int `yaml:"backfill_days,omitempty"`

	// Schedule is a cron expression for the daemon refresh loop.
	Schedule string `yaml:"schedule,omitempty"`

	// MinRefreshSeconds is the minimum gap between refresh cycles.
	MinRefreshSeconds int `yaml:"min_refresh_seconds,omitempty"`
}

// FPLConfig holds FPL credentials and account selection
type FPLConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Token is a session token captured via 'fplscraper capture'. When set
	// it is used instead of logging in with the credentials.
	Token string `yaml:"token,omitempty"`

	// Accounts limits the refresh to these account numbers. When empty the
	// open accounts are discovered from the API.
	Accounts []string `yaml:"accounts,omitempty"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`                     // e.g., "http://yourdomain.local:5050"
	Token        string `yaml:"token"`                   // Long-lived access token
	EntityPrefix string `yaml:"entity_prefix,omitempty"` // e.g., "sensor.fpl"
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // default "fpl"
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetBackfillDays returns the statistics backfill window with a default of 15
func (c *Config) GetBackfillDays() int {
	if c.BackfillDays <= 0 {
		return 15
	}
	return c.BackfillDays
}

// GetSchedule returns the daemon cron schedule, defaulting to every 20 minutes
func (c *Config) GetSchedule() string {
	if c.Schedule == "" {
		return "@every 20m"
	}
	return c.Schedule
}

// GetMinRefreshSeconds returns the minimum gap between cycles, default 30
func (c *Config) GetMinRefreshSeconds() int {
	if c.MinRefreshSeconds <= 0 {
		return 30
	}
	return c.MinRefreshSeconds
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "fpl"
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "fpl"
	}
	return c.TopicPrefix
}
