package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

const heatEpsilon = 1e-9

// SizeResult is the outcome of a sizing request. Zero shares means do not
// trade and is not an error.
type SizeResult struct {
	Shares     int
	RiskAmount float64
	Details    map[string]any
}

// TradeOutcome is what the sizer learns when a position closes.
type TradeOutcome struct {
	Ticker     string
	PnL        float64
	ReturnPct  float64 // fraction of entry notional
	Confidence float64
}

// Sizer converts confidence and a risk budget into a share count and keeps
// the capital, heat and drawdown books for one account.
type Sizer struct {
	cfg Config
	log zerolog.Logger

	accountSize float64
	peakBalance float64
	startOfDay  float64
	shutdown    bool

	openRisk map[string]float64
	closed   []TradeOutcome
}

// NewSizer validates cfg and starts the books at account.
func NewSizer(cfg Config, account float64, log zerolog.Logger) (*Sizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if account <= 0 {
		return nil, fmt.Errorf("%w: account size must be positive, got %v", ErrInvalidConfig, account)
	}
	return &Sizer{
		cfg:         cfg,
		log:         log.With().Str("component", "sizer").Logger(),
		accountSize: account,
		peakBalance: account,
		startOfDay:  account,
		openRisk:    make(map[string]float64),
	}, nil
}

func confidenceScale(c float64) float64 {
	switch {
	case c >= 0.70:
		return 1.0
	case c >= 0.60:
		return 0.75
	case c >= 0.50:
		return 0.50
	default:
		return 0.25
	}
}

// Size sizes a trade against the current portfolio heat.
func (s *Sizer) Size(ticker string, entry, stop, confidence float64) SizeResult {
	return s.SizeWithHeat(ticker, entry, stop, confidence, s.PortfolioHeat())
}

// SizeWithHeat sizes a trade given an explicit current heat. The stop may
// sit on either side of entry; only its distance matters.
func (s *Sizer) SizeWithHeat(ticker string, entry, stop, confidence, heat float64) SizeResult {
	details := map[string]any{
		"ticker":     ticker,
		"entry":      entry,
		"stop":       stop,
		"confidence": confidence,
		"heat":       heat,
	}
	res := SizeResult{Details: details}

	riskPerShare := math.Abs(entry - stop)
	details["risk_per_share"] = riskPerShare
	if entry <= 0 || riskPerShare <= 0 || s.accountSize <= 0 {
		details["reason"] = "non-positive risk per share"
		return res
	}

	edge := math.Max(0, (confidence-0.5)*2)
	kellyPct := edge * s.cfg.KellyFraction
	scale := confidenceScale(confidence)
	risk := s.accountSize * kellyPct * scale
	details["kelly_edge"] = edge
	details["kelly_pct"] = kellyPct
	details["confidence_scale"] = scale
	details["base_risk"] = risk

	var caps []string

	maxRisk := s.accountSize * s.cfg.MaxRiskPerTradePct
	if risk > maxRisk {
		risk = maxRisk
		caps = append(caps, "risk_per_trade")
	}

	if heat+risk/s.accountSize > s.cfg.MaxPortfolioHeatPct+heatEpsilon {
		remaining := s.cfg.MaxPortfolioHeatPct*s.accountSize - heat*s.accountSize
		risk = math.Max(0, remaining)
		caps = append(caps, "portfolio_heat")
	}

	shares := floorShares(risk / riskPerShare)

	maxValue := s.accountSize * s.cfg.MaxPositionPct
	if float64(shares)*entry > maxValue {
		shares = floorShares(maxValue / entry)
		caps = append(caps, "position_value")
	}
	if shares < 0 {
		shares = 0
	}

	res.Shares = shares
	res.RiskAmount = float64(shares) * riskPerShare
	details["caps"] = caps
	details["shares"] = shares
	details["risk_amount"] = res.RiskAmount
	details["position_value"] = float64(shares) * entry

	s.log.Debug().
		Str("ticker", ticker).
		Int("shares", shares).
		Float64("risk", res.RiskAmount).
		Strs("caps", caps).
		Msg("sized")
	return res
}

// floorShares rounds down, absorbing float noise such as 99.99999999999997.
func floorShares(x float64) int {
	return int(math.Floor(x + 1e-9))
}

// OpenPosition books risk for an open ticker.
func (s *Sizer) OpenPosition(ticker string, risk float64) {
	s.openRisk[ticker] = risk
}

// ClosePosition releases the ticker's risk and realizes its P/L.
func (s *Sizer) ClosePosition(o TradeOutcome) {
	delete(s.openRisk, o.Ticker)
	s.accountSize += o.PnL
	if s.accountSize > s.peakBalance {
		s.peakBalance = s.accountSize
	}
	s.closed = append(s.closed, o)

	if s.MaxDrawdown() >= shutdownDrawdown {
		s.shutdown = true
	}
}

// StartDay marks the start-of-day balance used for daily drawdown.
func (s *Sizer) StartDay() {
	s.startOfDay = s.accountSize
}

// AccountSize is the current realized balance.
func (s *Sizer) AccountSize() float64 { return s.accountSize }

// OpenRisk returns the booked risk for ticker.
func (s *Sizer) OpenRisk(ticker string) float64 { return s.openRisk[ticker] }

// PortfolioHeat is total open risk as a fraction of the account.
func (s *Sizer) PortfolioHeat() float64 {
	if s.accountSize <= 0 {
		return 0
	}
	total := 0.0
	for _, r := range s.openRisk {
		total += r
	}
	return total / s.accountSize
}

// DailyDrawdown is the decline from the start-of-day balance.
func (s *Sizer) DailyDrawdown() float64 {
	if s.startOfDay <= 0 || s.accountSize >= s.startOfDay {
		return 0
	}
	return (s.startOfDay - s.accountSize) / s.startOfDay
}

// MaxDrawdown is the decline from the peak balance.
func (s *Sizer) MaxDrawdown() float64 {
	if s.peakBalance <= 0 || s.accountSize >= s.peakBalance {
		return 0
	}
	return (s.peakBalance - s.accountSize) / s.peakBalance
}

// ResetDrawdown is the manual reset after a shutdown: the peak and the day
// start move to the current balance.
func (s *Sizer) ResetDrawdown() {
	s.log.Warn().Float64("account", s.accountSize).Msg("drawdown reset")
	s.peakBalance = s.accountSize
	s.startOfDay = s.accountSize
	s.shutdown = false
}
