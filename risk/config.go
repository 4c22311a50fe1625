package risk

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid risk config")

// Config holds the risk parameters. Percentages are fractions (0.02 = 2%).
type Config struct {
	// Kelly sizing
	KellyFraction       float64 `yaml:"kelly_fraction" json:"kelly_fraction" toml:"kelly_fraction"`
	MaxRiskPerTradePct  float64 `yaml:"max_risk_per_trade_pct" json:"max_risk_per_trade_pct" toml:"max_risk_per_trade_pct"`
	MaxPortfolioHeatPct float64 `yaml:"max_portfolio_heat_pct" json:"max_portfolio_heat_pct" toml:"max_portfolio_heat_pct"`
	MaxPositionPct      float64 `yaml:"max_position_pct" json:"max_position_pct" toml:"max_position_pct"`

	// Gate
	MinConfidence         float64 `yaml:"min_confidence" json:"min_confidence" toml:"min_confidence"`
	MaxPositionsPerSector int     `yaml:"max_positions_per_sector" json:"max_positions_per_sector" toml:"max_positions_per_sector"`
	MaxExposurePct        float64 `yaml:"max_exposure_pct" json:"max_exposure_pct" toml:"max_exposure_pct"`

	// Circuit breaker
	DailyLossLimitPct float64 `yaml:"daily_loss_limit_pct" json:"daily_loss_limit_pct" toml:"daily_loss_limit_pct"`
	ResumeAt          string  `yaml:"resume_at" json:"resume_at" toml:"resume_at"` // "HH:MM" next trading day

	// Stops
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" toml:"stop_loss_pct"`
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period" toml:"atr_period"`
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier" toml:"atr_multiplier"`
	RewardRatio   float64 `yaml:"reward_ratio" json:"reward_ratio" toml:"reward_ratio"`

	// Ticker -> sector overrides, merged over the built-in table.
	Sectors map[string]string `yaml:"sectors,omitempty" json:"sectors,omitempty" toml:"sectors,omitempty"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		KellyFraction:         0.25,
		MaxRiskPerTradePct:    0.02,
		MaxPortfolioHeatPct:   0.06,
		MaxPositionPct:        0.10,
		MinConfidence:         0.60,
		MaxPositionsPerSector: 3,
		MaxExposurePct:        0.80,
		DailyLossLimitPct:     0.05,
		ResumeAt:              "10:00",
		StopLossPct:           0.05,
		ATRPeriod:             14,
		ATRMultiplier:         2.0,
		RewardRatio:           2.0,
	}
}

func fraction(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%w: %s must be in (0, 1], got %v", ErrInvalidConfig, name, v)
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"kelly_fraction", c.KellyFraction},
		{"max_risk_per_trade_pct", c.MaxRiskPerTradePct},
		{"max_portfolio_heat_pct", c.MaxPortfolioHeatPct},
		{"max_position_pct", c.MaxPositionPct},
		{"max_exposure_pct", c.MaxExposurePct},
		{"daily_loss_limit_pct", c.DailyLossLimitPct},
		{"stop_loss_pct", c.StopLossPct},
	}
	for _, ch := range checks {
		if err := fraction(ch.name, ch.v); err != nil {
			return err
		}
	}

	if c.MinConfidence < 0 || c.MinConfidence >= 1 {
		return fmt.Errorf("%w: min_confidence must be in [0, 1), got %v", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MaxPositionsPerSector <= 0 {
		return fmt.Errorf("%w: max_positions_per_sector must be positive", ErrInvalidConfig)
	}
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("%w: atr_period must be positive", ErrInvalidConfig)
	}
	if c.ATRMultiplier <= 0 {
		return fmt.Errorf("%w: atr_multiplier must be positive", ErrInvalidConfig)
	}
	if c.RewardRatio <= 0 {
		return fmt.Errorf("%w: reward_ratio must be positive", ErrInvalidConfig)
	}
	if _, err := c.resumeOffset(); err != nil {
		return err
	}
	return nil
}

func (c Config) resumeOffset() (time.Duration, error) {
	if c.ResumeAt == "" {
		return 10 * time.Hour, nil
	}
	t, err := time.Parse("15:04", c.ResumeAt)
	if err != nil {
		return 0, fmt.Errorf("%w: resume_at %q: %v", ErrInvalidConfig, c.ResumeAt, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
