package risk

import "fmt"

// Level is the sizer's risk classification.
type Level int

const (
	Normal Level = iota
	Alert
	Critical
	Shutdown
)

func (l Level) String() string {
	switch l {
	case Alert:
		return "ALERT"
	case Critical:
		return "CRITICAL"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "NORMAL"
	}
}

// MarshalText lets Level serialise by name.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

const (
	alertDrawdown      = 0.10
	alertDailyLoss     = 0.08
	criticalDrawdown   = 0.20
	criticalDailyLoss  = 0.15
	shutdownDrawdown   = 0.30
	alertMinConfidence = 0.75
)

// RiskStatus is derived on every query, never stored.
type RiskStatus struct {
	Level           Level    `json:"level"`
	PositionScale   float64  `json:"position_scale"`
	MinConfidence   float64  `json:"min_confidence"` // entries need confidence above this
	AllowNewEntries bool     `json:"allow_new_entries"`
	CloseAll        bool     `json:"close_all"`
	RequiresReset   bool     `json:"requires_reset"`
	MaxDrawdown     float64  `json:"max_drawdown"`
	DailyDrawdown   float64  `json:"daily_drawdown"`
	PortfolioHeat   float64  `json:"portfolio_heat"`
	Reasons         []string `json:"reasons,omitempty"`
}

// Permits reports whether a new entry at confidence is allowed.
func (r RiskStatus) Permits(confidence float64) bool {
	if !r.AllowNewEntries {
		return false
	}
	return r.MinConfidence == 0 || confidence > r.MinConfidence
}

// Status classifies the current drawdown and heat. It is advisory; the
// sizer never closes positions itself.
func (s *Sizer) Status() RiskStatus {
	st := RiskStatus{
		MaxDrawdown:   s.MaxDrawdown(),
		DailyDrawdown: s.DailyDrawdown(),
		PortfolioHeat: s.PortfolioHeat(),
	}

	level := Normal
	switch {
	case s.shutdown || st.MaxDrawdown >= shutdownDrawdown:
		level = Shutdown
		st.Reasons = append(st.Reasons, fmt.Sprintf("max drawdown %.1f%% >= %.0f%%", st.MaxDrawdown*100, shutdownDrawdown*100))
	case st.MaxDrawdown >= criticalDrawdown || st.DailyDrawdown >= criticalDailyLoss:
		level = Critical
		st.Reasons = append(st.Reasons, fmt.Sprintf("drawdown %.1f%% / daily %.1f%%", st.MaxDrawdown*100, st.DailyDrawdown*100))
	case st.MaxDrawdown >= alertDrawdown || st.DailyDrawdown >= alertDailyLoss:
		level = Alert
		st.Reasons = append(st.Reasons, fmt.Sprintf("drawdown %.1f%% / daily %.1f%%", st.MaxDrawdown*100, st.DailyDrawdown*100))
	}

	if st.PortfolioHeat > s.cfg.MaxPortfolioHeatPct+heatEpsilon {
		st.Reasons = append(st.Reasons, fmt.Sprintf("heat %.1f%% above cap", st.PortfolioHeat*100))
		if level < Alert {
			level = Alert
		}
	}

	st.Level = level
	switch level {
	case Normal:
		st.PositionScale = 1.0
		st.AllowNewEntries = true
	case Alert:
		st.PositionScale = 0.5
		st.MinConfidence = alertMinConfidence
		st.AllowNewEntries = true
	case Critical:
		st.PositionScale = 0.25
	case Shutdown:
		st.CloseAll = true
		st.RequiresReset = true
	}
	return st
}
