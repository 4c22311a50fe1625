package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rudirid/ares-master-control-program-sub000/pkg/logging"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// Config represents the complete run configuration.
type Config struct {
	Simulation sim.Config    `json:"simulation" yaml:"simulation" toml:"simulation"`
	Risk       risk.Config   `json:"risk" yaml:"risk" toml:"risk"`
	Data       DataConfig    `json:"data" yaml:"data" toml:"data"`
	Journal    JournalConfig `json:"journal" yaml:"journal" toml:"journal"`
	Report     ReportConfig  `json:"report" yaml:"report" toml:"report"`
	Sweep      SweepConfig   `json:"sweep" yaml:"sweep" toml:"sweep"`
	Log        LogConfig     `json:"log" yaml:"log" toml:"log"`
}

// DataConfig names the input CSV files.
type DataConfig struct {
	Events string `json:"events" yaml:"events" toml:"events"`
	Prices string `json:"prices" yaml:"prices" toml:"prices"`
}

// Journal types.
const (
	JournalNone   = "none"
	JournalCSV    = "csv"
	JournalSQLite = "sqlite"
)

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type" toml:"type"` // "none", "csv" or "sqlite"
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
}

// ReportConfig selects the outputs written after a run. Empty paths skip
// that output.
type ReportConfig struct {
	Console     bool   `json:"console" yaml:"console" toml:"console"`
	ExcelPath   string `json:"excel_path,omitempty" yaml:"excel_path,omitempty" toml:"excel_path,omitempty"`
	MetricsPath string `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty" toml:"metrics_path,omitempty"`
	OrgPath     string `json:"org_path,omitempty" yaml:"org_path,omitempty" toml:"org_path,omitempty"`
	JSONPath    string `json:"json_path,omitempty" yaml:"json_path,omitempty" toml:"json_path,omitempty"`
}

// SweepConfig is the parameter grid for a sweep.
type SweepConfig struct {
	KellyFractions []float64 `json:"kelly_fractions" yaml:"kelly_fractions" toml:"kelly_fractions"`
	ATRMultipliers []float64 `json:"atr_multipliers" yaml:"atr_multipliers" toml:"atr_multipliers"`
	Workers        int       `json:"workers" yaml:"workers" toml:"workers"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Simulation: sim.DefaultConfig(),
		Risk:       risk.DefaultConfig(),
		Data: DataConfig{
			Events: "./data/events.csv",
			Prices: "./data/prices.csv",
		},
		Journal: JournalConfig{
			Type:   JournalSQLite,
			DBPath: "./ares.db",
		},
		Report: ReportConfig{Console: true},
		Sweep: SweepConfig{
			KellyFractions: []float64{0.1, 0.25, 0.5},
			ATRMultipliers: []float64{1.5, 2.0, 3.0},
			Workers:        4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// Parse decodes data on top of the defaults without validating.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()

	var err error
	switch formatOf(path) {
	case formatYAML:
		err = yaml.Unmarshal(data, cfg)
	case formatTOML:
		_, err = toml.Decode(string(data), cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (TOML, YAML or JSON by
// extension), applies .env and ARES_* overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	LoadDotEnv()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (format by extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch formatOf(path) {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		buf := new(bytes.Buffer)
		err = toml.NewEncoder(buf).Encode(c)
		data = buf.Bytes()
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
	var errs []error

	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if err := c.Risk.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("risk: %w", err))
	}

	switch c.Journal.Type {
	case JournalNone, "":
	case JournalCSV:
		if c.Journal.Dir == "" {
			errs = append(errs, errors.New("journal dir required for CSV type"))
		}
	case JournalSQLite:
		if c.Journal.DBPath == "" {
			errs = append(errs, errors.New("journal db_path required for SQLite type"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.type must be one of none, csv, sqlite; got %q", c.Journal.Type))
	}

	for _, k := range c.Sweep.KellyFractions {
		if k <= 0 || k > 1 {
			errs = append(errs, fmt.Errorf("sweep.kelly_fractions: %v outside (0, 1]", k))
		}
	}
	for _, m := range c.Sweep.ATRMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("sweep.atr_multipliers: %v must be positive", m))
		}
	}
	if c.Sweep.Workers < 0 {
		errs = append(errs, errors.New("sweep.workers must not be negative"))
	}

	switch c.Log.Format {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json; got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
