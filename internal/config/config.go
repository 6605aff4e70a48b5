// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fetch limits enforced regardless of what the file asks for.
const (
	DefaultFetchLimit = 50
	MaxFetchLimit     = 500
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// API describes gateway connectivity: where the signal backend lives and how
// to authenticate against it.
type API struct {
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Trader tunes the polling loop itself.
type Trader struct {
	PollIntervalSecs float64 `yaml:"poll_interval_secs"`
	FetchLimit       int     `yaml:"fetch_limit"`
	IncludeRetryable bool    `yaml:"include_retryable"`
	Mode             string  `yaml:"mode"`
	OrderTimeoutSecs int     `yaml:"order_timeout_secs"`
	JournalPath      string  `yaml:"journal_path"`
}

// Broker selects and tunes the execution adapter.
type Broker struct {
	Name         string  `yaml:"name"`
	StartingCash float64 `yaml:"starting_cash"`
	DefaultMark  float64 `yaml:"default_mark"`
	LatencyMs    int     `yaml:"latency_ms"`
}

// Sync controls the optional broker→gateway position sync.
type Sync struct {
	IntervalSecs int `yaml:"interval_secs"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App    App    `yaml:"app"`
	API    API    `yaml:"api"`
	Trader Trader `yaml:"trader"`
	Broker Broker `yaml:"broker"`
	Sync   Sync   `yaml:"sync"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// environment overrides and defaults, and validates the result. A returned
// error is a startup failure; nothing is clamped silently except the fetch
// limit default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Credentials are allowed to live outside the file so the YAML can be
// committed without secrets.
func (c *Config) applyEnv() {
	if v := os.Getenv("QT_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("QT_API_TOKEN"); v != "" {
		c.API.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quantTrader"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = 10
	}
	if c.Trader.PollIntervalSecs == 0 {
		c.Trader.PollIntervalSecs = 1
	}
	if c.Trader.FetchLimit == 0 {
		c.Trader.FetchLimit = DefaultFetchLimit
	}
	if c.Trader.Mode == "" {
		c.Trader.Mode = "live"
	}
	if c.Trader.OrderTimeoutSecs <= 0 {
		c.Trader.OrderTimeoutSecs = 15
	}
	if c.Broker.Name == "" {
		c.Broker.Name = "simulated"
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
}

// Validate reports every configuration problem at once so operators fix them
// in one pass.
func (c *Config) Validate() error {
	var problems []string
	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required (or QT_API_BASE_URL)")
	}
	if c.API.Token == "" {
		problems = append(problems, "api.token is required (or QT_API_TOKEN)")
	}
	if c.Trader.PollIntervalSecs <= 0 {
		problems = append(problems, "trader.poll_interval_secs must be > 0")
	}
	if c.Trader.FetchLimit < 1 || c.Trader.FetchLimit > MaxFetchLimit {
		problems = append(problems, fmt.Sprintf("trader.fetch_limit must be in [1, %d]", MaxFetchLimit))
	}
	if c.Trader.Mode != "live" && c.Trader.Mode != "paper" {
		problems = append(problems, fmt.Sprintf("trader.mode %q is not one of live, paper", c.Trader.Mode))
	}
	if c.Sync.IntervalSecs < 0 {
		problems = append(problems, "sync.interval_secs must be >= 0")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// PollInterval returns the cycle cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trader.PollIntervalSecs * float64(time.Second))
}

// APITimeout returns the gateway request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// OrderTimeout bounds a single broker placement call.
func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Trader.OrderTimeoutSecs) * time.Second
}

// SyncInterval returns the position sync cadence, zero when disabled.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSecs) * time.Second
}
