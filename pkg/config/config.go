// Package config loads the daemon configuration from a YAML file, then
// applies environment variable overrides and command-line flags (flags win
// over env, env wins over file).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds the ops/metrics listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds journal settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
	// MaxJournalSize is a soft cap used for alerting only, accepted in
	// humanized form ("2 GiB", "500 MB").
	MaxJournalSize string `yaml:"max_journal_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MaintenanceConfig drives the scheduled sweep that ends overdue polls and
// purges retained content of long-deleted messages.
type MaintenanceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	// PurgeDeletedAfter is how long soft-deleted content is retained
	// before the permanent purge, in time.ParseDuration form.
	PurgeDeletedAfter string `yaml:"purge_deleted_after"`
	// RatePerSec paces the sweep across chats; 0 uses the default.
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// Addr returns the listen address in host:port form. An Address already
// carrying a port (as from the -addr flag) is used as-is.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Address, ":") {
		return c.Server.Address
	}
	port := c.Server.Port
	if port == 0 {
		port = 7421
	}
	return fmt.Sprintf("%s:%d", c.Server.Address, port)
}

// MaxJournalBytes parses the humanized journal size cap; zero means no cap.
func (c *Config) MaxJournalBytes() (uint64, error) {
	if c.Storage.MaxJournalSize == "" {
		return 0, nil
	}
	return humanize.ParseBytes(c.Storage.MaxJournalSize)
}

// PurgeDeletedAfterDuration returns the retention window for deleted
// content. The default keeps content for 5 minutes, long enough for the
// surrounding layer to act on the returned content. The configured value is
// validated at load time, so an unparsable string falls back to the default
// only when the config bypassed Load.
func (c *Config) PurgeDeletedAfterDuration() time.Duration {
	if c.Maintenance.PurgeDeletedAfter == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.Maintenance.PurgeDeletedAfter)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Load reads the config file (optional) and applies env overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data"
	}
	if s := cfg.Maintenance.PurgeDeletedAfter; s != "" {
		if _, err := time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("invalid maintenance.purge_deleted_after %q: %w", s, err)
		}
	}
	if _, err := cfg.MaxJournalBytes(); err != nil {
		return nil, fmt.Errorf("invalid storage.max_journal_size %q: %w", cfg.Storage.MaxJournalSize, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHATLEDGER_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CHATLEDGER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CHATLEDGER_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CHATLEDGER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ParseCommandFlags registers and parses the daemon's flags, returning the
// values plus the set of flags the user explicitly provided so callers can
// let flags win over config.
func ParseCommandFlags() (cfgPath, dbPath, addr string, set map[string]bool) {
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.StringVar(&dbPath, "db", "", "journal database path")
	flag.StringVar(&addr, "addr", "", "ops listen address (host:port)")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return
}
