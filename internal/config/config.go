// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cryptosim/internal/exchange"
	"cryptosim/internal/risk"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Simulator holds the settings for one simulation session.
type Simulator struct {
	InitialBalance float64  `yaml:"initial_balance"`
	RiskProfile    string   `yaml:"risk_profile"`
	Symbols        []string `yaml:"symbols"`
	TradeLogPath   string   `yaml:"trade_log_path"`
}

// Feed selects and tunes the market data source.
type Feed struct {
	Provider       string `yaml:"provider"`
	TickIntervalMs int    `yaml:"tick_interval_ms"`
	ReplayFile     string `yaml:"replay_file"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App                         `yaml:"app"`
	Simulator Simulator                   `yaml:"simulator"`
	Feed      Feed                        `yaml:"feed"`
	Risk      risk.Profiles               `yaml:"risk_profiles"`
	Rules     map[string]exchange.RuleSet `yaml:"exchange_rules"`
}

// Load reads a YAML file from disk and hydrates a Config struct, filling in
// the built-in risk profile and exchange rule tables when absent.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns a fully populated configuration using the built-in tables.
func Default() *Config {
	cfg := &Config{
		App: App{Name: "cryptosim", Env: "dev", MetricsAddr: ":9102", LogLevel: "info"},
		Simulator: Simulator{
			InitialBalance: 1000,
			RiskProfile:    risk.DefaultProfile,
			Symbols:        []string{"BTC/USDT", "ETH/USDT", "BNB/USDT", "ADA/USDT", "SOL/USDT"},
		},
		Feed: Feed{Provider: "stub", TickIntervalMs: 1000},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Risk) == 0 {
		c.Risk = risk.DefaultProfiles()
	}
	if len(c.Rules) == 0 {
		c.Rules = exchange.DefaultTable()
	}
	if c.Simulator.InitialBalance == 0 {
		c.Simulator.InitialBalance = 1000
	}
	if c.Simulator.RiskProfile == "" {
		c.Simulator.RiskProfile = risk.DefaultProfile
	}
	if c.Feed.TickIntervalMs <= 0 {
		c.Feed.TickIntervalMs = 1000
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
}

// Validate is the one fatal-class gate: malformed static configuration is
// reported at startup instead of surfacing mid-simulation.
func (c *Config) Validate() error {
	if c.Simulator.InitialBalance <= 0 {
		return fmt.Errorf("simulator: initial_balance must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk profiles: %w", err)
	}
	for sym, rules := range c.Rules {
		if err := rules.Validate(); err != nil {
			return fmt.Errorf("exchange rules for %s: %w", sym, err)
		}
	}
	return nil
}
