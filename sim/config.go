package sim

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

// ErrInvalidConfig wraps every simulator configuration failure.
var ErrInvalidConfig = errors.New("invalid simulator config")

// Config holds the trading parameters. Percentages are fractions.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" toml:"initial_capital"`
	CommissionPct  float64 `yaml:"commission_pct" json:"commission_pct" toml:"commission_pct"`
	SlippagePct    float64 `yaml:"slippage_pct" json:"slippage_pct" toml:"slippage_pct"`

	// Filter cascade
	MaxEventAgeMinutes   int     `yaml:"max_event_age_minutes" json:"max_event_age_minutes" toml:"max_event_age_minutes"` // 0 disables
	RequireMaterial      bool    `yaml:"require_material" json:"require_material" toml:"require_material"`
	TradingHoursOnly     bool    `yaml:"trading_hours_only" json:"trading_hours_only" toml:"trading_hours_only"`
	MinSentimentStrength float64 `yaml:"min_sentiment_strength" json:"min_sentiment_strength" toml:"min_sentiment_strength"`
	MinTechnicalFactor   float64 `yaml:"min_technical_factor" json:"min_technical_factor" toml:"min_technical_factor"`
	AllowShort           bool    `yaml:"allow_short" json:"allow_short" toml:"allow_short"`

	// Signal
	ContrarianThreshold    float64 `yaml:"contrarian_threshold" json:"contrarian_threshold" toml:"contrarian_threshold"`
	ContrarianLookbackDays int     `yaml:"contrarian_lookback_days" json:"contrarian_lookback_days" toml:"contrarian_lookback_days"`

	// Position lifecycle
	HoldingPeriodDays int `yaml:"holding_period_days" json:"holding_period_days" toml:"holding_period_days"`

	Timezone string `yaml:"timezone" json:"timezone" toml:"timezone"`
	Seed     int64  `yaml:"seed" json:"seed" toml:"seed"`
}

// DefaultConfig returns the defaults for an ASX news-driven run.
func DefaultConfig() Config {
	return Config{
		InitialCapital:         100000,
		CommissionPct:          0.001,
		SlippagePct:            0.001,
		MaxEventAgeMinutes:     24 * 60,
		MinSentimentStrength:   0.2,
		MinTechnicalFactor:     0.95,
		ContrarianThreshold:    0.8,
		ContrarianLookbackDays: 5,
		HoldingPeriodDays:      5,
		Timezone:               "Australia/Sydney",
		Seed:                   1,
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive", ErrInvalidConfig)
	}
	if c.CommissionPct < 0 || c.CommissionPct >= 1 {
		return fmt.Errorf("%w: commission_pct must be in [0, 1)", ErrInvalidConfig)
	}
	if c.SlippagePct < 0 || c.SlippagePct >= 1 {
		return fmt.Errorf("%w: slippage_pct must be in [0, 1)", ErrInvalidConfig)
	}
	if c.MaxEventAgeMinutes < 0 {
		return fmt.Errorf("%w: max_event_age_minutes must not be negative", ErrInvalidConfig)
	}
	if c.MinSentimentStrength < 0 || c.MinSentimentStrength > 1 {
		return fmt.Errorf("%w: min_sentiment_strength must be in [0, 1]", ErrInvalidConfig)
	}
	if c.MinTechnicalFactor < 0 {
		return fmt.Errorf("%w: min_technical_factor must not be negative", ErrInvalidConfig)
	}
	if c.ContrarianThreshold <= 0 || c.ContrarianThreshold > 1 {
		return fmt.Errorf("%w: contrarian_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if c.ContrarianLookbackDays <= 0 {
		return fmt.Errorf("%w: contrarian_lookback_days must be positive", ErrInvalidConfig)
	}
	if c.HoldingPeriodDays <= 0 {
		return fmt.Errorf("%w: holding_period_days must be positive", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}
