package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARES_"

// LoadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overwrites fields from ARES_* variables that are set and
// non-empty. Malformed values are reported together.
func ApplyEnv(cfg *Config) error {
	e := &envReader{}

	// simulation
	e.setFloat(&cfg.Simulation.InitialCapital, "INITIAL_CAPITAL")
	e.setFloat(&cfg.Simulation.CommissionPct, "COMMISSION_PCT")
	e.setFloat(&cfg.Simulation.SlippagePct, "SLIPPAGE_PCT")
	e.setInt(&cfg.Simulation.MaxEventAgeMinutes, "MAX_EVENT_AGE_MINUTES")
	e.setBool(&cfg.Simulation.RequireMaterial, "REQUIRE_MATERIAL")
	e.setBool(&cfg.Simulation.TradingHoursOnly, "TRADING_HOURS_ONLY")
	e.setBool(&cfg.Simulation.AllowShort, "ALLOW_SHORT")
	e.setInt(&cfg.Simulation.HoldingPeriodDays, "HOLDING_PERIOD_DAYS")
	e.setString(&cfg.Simulation.Timezone, "TIMEZONE")
	e.setInt64(&cfg.Simulation.Seed, "SEED")

	// risk
	e.setFloat(&cfg.Risk.KellyFraction, "KELLY_FRACTION")
	e.setFloat(&cfg.Risk.MaxRiskPerTradePct, "MAX_RISK_PER_TRADE_PCT")
	e.setFloat(&cfg.Risk.MaxPortfolioHeatPct, "MAX_PORTFOLIO_HEAT_PCT")
	e.setFloat(&cfg.Risk.MinConfidence, "MIN_CONFIDENCE")
	e.setFloat(&cfg.Risk.DailyLossLimitPct, "DAILY_LOSS_LIMIT_PCT")
	e.setFloat(&cfg.Risk.ATRMultiplier, "ATR_MULTIPLIER")
	e.setFloat(&cfg.Risk.StopLossPct, "STOP_LOSS_PCT")

	// io
	e.setString(&cfg.Data.Events, "EVENTS")
	e.setString(&cfg.Data.Prices, "PRICES")
	e.setString(&cfg.Journal.Type, "JOURNAL_TYPE")
	e.setString(&cfg.Journal.Dir, "JOURNAL_DIR")
	e.setString(&cfg.Journal.DBPath, "JOURNAL_DB")
	e.setString(&cfg.Report.ExcelPath, "REPORT_EXCEL")
	e.setString(&cfg.Report.MetricsPath, "REPORT_METRICS")
	e.setInt(&cfg.Sweep.Workers, "SWEEP_WORKERS")
	e.setString(&cfg.Log.Level, "LOG_LEVEL")
	e.setString(&cfg.Log.Format, "LOG_FORMAT")

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, err))
}

func (e *envReader) setString(dst *string, key string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(dst *int, key string) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setInt64(dst *int64, key string) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setFloat(dst *float64, key string) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) setBool(dst *bool, key string) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}
