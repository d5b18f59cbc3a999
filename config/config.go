package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/risk"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvJournalType = "PROPJOURNAL_JOURNAL_TYPE"
	EnvDBPath      = "PROPJOURNAL_DB_PATH"
	EnvDSN         = "PROPJOURNAL_DSN"
	EnvLogLevel    = "PROPJOURNAL_LOG_LEVEL"
	EnvTiersFile   = "PROPJOURNAL_TIERS_FILE"
)

// Journal backends.
const (
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
	JournalMemory   = "memory"
)

// Config represents the complete propjournal configuration
type Config struct {
	Journal   JournalConfig `json:"journal" yaml:"journal"`
	TiersFile string        `json:"tiers_file,omitempty" yaml:"tiers_file,omitempty"`
	Sizing    SizingConfig  `json:"sizing" yaml:"sizing"`
	Log       LogConfig     `json:"log" yaml:"log"`
}

// JournalConfig selects and locates the trade store
type JournalConfig struct {
	Type     string `json:"type" yaml:"type"` // "sqlite", "postgres" or "memory"
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	MaxConns int32  `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
}

// SizingConfig mirrors risk.SizingPolicy
type SizingConfig struct {
	ConservativeFraction float64 `json:"conservative_fraction" yaml:"conservative_fraction"`
	MinLot               int     `json:"min_lot" yaml:"min_lot"`
	RuinTolerancePct     float64 `json:"ruin_tolerance_pct" yaml:"ruin_tolerance_pct"`
	MinSampleSize        int     `json:"min_sample_size" yaml:"min_sample_size"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// Load builds the effective configuration: defaults, then the file at path
// (if any), then .env files and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	// A missing .env is normal; plain environment variables still apply.
	_ = godotenv.Load(envFiles...)

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON). Keys absent
// from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PROPJOURNAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvJournalType); v != "" {
		c.Journal.Type = strings.ToLower(v)
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv(EnvDSN); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvTiersFile); v != "" {
		c.TiersFile = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Journal.Type {
	case JournalSQLite:
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case JournalPostgres:
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal dsn required for postgres type")
		}
	case JournalMemory:
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'postgres' or 'memory'")
	}
	if c.Journal.MaxConns < 0 {
		return fmt.Errorf("journal.max_conns must not be negative")
	}

	if err := c.SizingPolicy().Validate(); err != nil {
		return fmt.Errorf("sizing: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// SizingPolicy returns the sizing section as a risk.SizingPolicy.
func (c *Config) SizingPolicy() risk.SizingPolicy {
	return risk.SizingPolicy{
		ConservativeFraction: c.Sizing.ConservativeFraction,
		MinLot:               c.Sizing.MinLot,
		RuinTolerancePct:     c.Sizing.RuinTolerancePct,
		MinSampleSize:        c.Sizing.MinSampleSize,
	}
}

// Tiers returns the tier table from TiersFile, or the built-in table when
// no file is configured. A relative TiersFile resolves against the working directory.
func (c *Config) Tiers() (apex.TierTable, error) {
	if c.TiersFile == "" {
		return apex.DefaultTiers(), nil
	}
	return apex.LoadTiers(c.TiersFile)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := risk.DefaultSizingPolicy()
	return &Config{
		Journal: JournalConfig{
			Type:   JournalSQLite,
			DBPath: "./propjournal.db",
		},
		Sizing: SizingConfig{
			ConservativeFraction: p.ConservativeFraction,
			MinLot:               p.MinLot,
			RuinTolerancePct:     p.RuinTolerancePct,
			MinSampleSize:        p.MinSampleSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
