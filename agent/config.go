package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"printmonitor/agent/poller"
	"printmonitor/agent/scanner"
	"printmonitor/agent/scanner/vendor"
	"printmonitor/common/config"
	"printmonitor/common/snmp/oids"
)

// AgentConfig represents the agent configuration
type AgentConfig struct {
	SNMP     SNMPConfig            `toml:"snmp"`
	Poll     PollConfig            `toml:"poll"`
	Database config.DatabaseConfig `toml:"database"`
	Logging  config.LoggingConfig  `toml:"logging"`
	Web      WebConfig             `toml:"web"`
}

// SNMPConfig holds SNMP client settings
type SNMPConfig struct {
	Community     string   `toml:"community"`
	Port          int      `toml:"port"`
	Retries       int      `toml:"retries"`
	GetTimeoutMs  int      `toml:"get_timeout_ms"`
	WalkTimeoutMs int      `toml:"walk_timeout_ms"`
	Versions      []string `toml:"versions"` // attempt order, e.g. ["2c", "1"]
	MaxWalk       int      `toml:"max_walk_entries"`
	OIDs          oids.Set `toml:"oids"`
}

// PollConfig controls the background poll loop
type PollConfig struct {
	IntervalSeconds      int    `toml:"interval_seconds"`
	Concurrency          int    `toml:"concurrency"`
	PageCountMode        string `toml:"page_count_mode"` // "sum" or "first"
	HistoryRetentionDays int    `toml:"history_retention_days"`
}

// WebConfig holds HTTP API settings
type WebConfig struct {
	Listen        string `toml:"listen"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// DefaultAgentConfig returns agent configuration with sensible defaults
func DefaultAgentConfig() *AgentConfig {
	def := scanner.DefaultConfig()
	return &AgentConfig{
		SNMP: SNMPConfig{
			Community:     def.Community,
			Port:          int(def.Port),
			Retries:       def.Retries,
			GetTimeoutMs:  int(def.GetTimeout / time.Millisecond),
			WalkTimeoutMs: int(def.WalkTimeout / time.Millisecond),
			Versions:      []string{"2c", "1"},
			MaxWalk:       def.MaxWalkEntries,
			OIDs:          oids.Defaults(),
		},
		Poll: PollConfig{
			IntervalSeconds:      300,
			Concurrency:          poller.DefaultConcurrency,
			PageCountMode:        string(vendor.PageCountSum),
			HistoryRetentionDays: 30,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // Will use default platform-specific path
		},
		Logging: config.LoggingConfig{
			Level: "info",
		},
		Web: WebConfig{
			Listen:        ":8080",
			EnableMetrics: true,
		},
	}
}

// LoadAgentConfig loads configuration from a TOML file with environment
// variable overrides. Returns an error if the file does not exist or cannot
// be parsed.
func LoadAgentConfig(configPath string) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if err := config.LoadTOML(configPath, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AgentConfig) {
	if val := os.Getenv("SNMP_COMMUNITY"); val != "" {
		cfg.SNMP.Community = val
	}
	cfg.SNMP.GetTimeoutMs = config.EnvInt("SNMP_GET_TIMEOUT_MS", cfg.SNMP.GetTimeoutMs)
	cfg.SNMP.WalkTimeoutMs = config.EnvInt("SNMP_WALK_TIMEOUT_MS", cfg.SNMP.WalkTimeoutMs)
	cfg.Poll.IntervalSeconds = config.EnvInt("POLL_INTERVAL_SECONDS", cfg.Poll.IntervalSeconds)
	cfg.Poll.Concurrency = config.EnvInt("POLL_CONCURRENCY", cfg.Poll.Concurrency)
	if val := os.Getenv("HTTP_LISTEN"); val != "" {
		cfg.Web.Listen = val
	}

	config.ApplyDatabaseEnvOverrides(&cfg.Database)
	config.ApplyLoggingEnvOverrides(&cfg.Logging)
}

// Validate rejects settings the poller cannot run with.
func (c *AgentConfig) Validate() error {
	if strings.TrimSpace(c.SNMP.Community) == "" {
		return fmt.Errorf("snmp.community must not be empty")
	}
	if c.SNMP.Port < 0 || c.SNMP.Port > 65535 {
		return fmt.Errorf("snmp.port %d out of range", c.SNMP.Port)
	}
	if c.SNMP.GetTimeoutMs <= 0 || c.SNMP.WalkTimeoutMs <= 0 {
		return fmt.Errorf("snmp timeouts must be positive")
	}
	for _, v := range c.SNMP.Versions {
		if _, err := scanner.ParseVersion(v); err != nil {
			return fmt.Errorf("snmp.versions: %w", err)
		}
	}
	if _, err := vendor.ParsePageCountMode(c.Poll.PageCountMode); err != nil {
		return fmt.Errorf("poll.page_count_mode: %w", err)
	}
	if c.Poll.IntervalSeconds < 10 {
		return fmt.Errorf("poll.interval_seconds must be at least 10, got %d", c.Poll.IntervalSeconds)
	}
	if err := c.SNMP.OIDs.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("snmp.oids: %w", err)
	}
	return nil
}

// PollerConfig converts the file settings into the poller's configuration.
// Call Validate first; invalid entries fall back to defaults here.
func (c *AgentConfig) PollerConfig() poller.Config {
	pc := poller.DefaultConfig()
	pc.SNMP.Community = c.SNMP.Community
	if c.SNMP.Port > 0 {
		pc.SNMP.Port = uint16(c.SNMP.Port)
	}
	pc.SNMP.Retries = c.SNMP.Retries
	pc.SNMP.GetTimeout = time.Duration(c.SNMP.GetTimeoutMs) * time.Millisecond
	pc.SNMP.WalkTimeout = time.Duration(c.SNMP.WalkTimeoutMs) * time.Millisecond
	if c.SNMP.MaxWalk > 0 {
		pc.SNMP.MaxWalkEntries = c.SNMP.MaxWalk
	}
	if len(c.SNMP.Versions) > 0 {
		pc.SNMP.Versions = pc.SNMP.Versions[:0:0]
		for _, v := range c.SNMP.Versions {
			if parsed, err := scanner.ParseVersion(v); err == nil {
				pc.SNMP.Versions = append(pc.SNMP.Versions, parsed)
			}
		}
	}
	pc.OIDs = c.SNMP.OIDs.WithDefaults()
	if mode, err := vendor.ParsePageCountMode(c.Poll.PageCountMode); err == nil {
		pc.PageCountMode = mode
	}
	if c.Poll.Concurrency > 0 {
		pc.Concurrency = c.Poll.Concurrency
	}
	return pc
}

// PollInterval returns the scheduler period.
func (c *AgentConfig) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// HistoryRetention returns how long snapshot history is kept; zero keeps
// everything.
func (c *AgentConfig) HistoryRetention() time.Duration {
	if c.Poll.HistoryRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Poll.HistoryRetentionDays) * 24 * time.Hour
}

// WriteDefaultAgentConfig writes a default agent configuration file
func WriteDefaultAgentConfig(configPath string) error {
	return config.WriteDefaultTOML(configPath, DefaultAgentConfig())
}

// resolveConfig finds the config file to load: an explicit path wins, then
// the platform search paths. A missing file yields defaults.
func resolveConfig(explicit string) (*AgentConfig, string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			cfg, err := LoadAgentConfig(explicit)
			return cfg, explicit, err
		}
	}
	if path, err := config.FindConfigFile("config.toml"); err == nil {
		cfg, err := LoadAgentConfig(path)
		return cfg, path, err
	}

	cfg := DefaultAgentConfig()
	applyEnvOverrides(cfg)
	return cfg, "", cfg.Validate()
}

// databaseConfig fills the sqlite path from the data directory when unset.
func databaseConfig(cfg config.DatabaseConfig, isService bool) (config.DatabaseConfig, error) {
	if cfg.Driver != "" && cfg.Driver != "sqlite" && cfg.Driver != "sqlite3" {
		return cfg, nil
	}
	if cfg.Path != "" {
		return cfg, nil
	}
	dir, err := config.GetDataDirectory(isService)
	if err != nil {
		return cfg, err
	}
	cfg.Path = filepath.Join(dir, "devices.db")
	return cfg, nil
}
