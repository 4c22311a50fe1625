package sim

import (
	"math"
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
)

// Exit reasons.
const (
	ReasonStopLoss      = "stop loss"
	ReasonTakeProfit    = "take profit"
	ReasonRiskStop      = "risk manager stop"
	ReasonHoldingPeriod = "holding period expired"
	ReasonShutdown      = "risk shutdown"
	ReasonEndOfSim      = "end of simulation"
)

// Position is one trade. At most one is open per ticker.
//
// EventTime is the triggering instant in the run's timezone. EntryTime and
// ExitTime are bar dates, keyed at UTC midnight, so ordering against the
// event is by calendar day: EntryTime is always after EventDay.
type Position struct {
	ID        string         `json:"id"`
	Ticker    string         `json:"ticker"`
	Direction risk.Direction `json:"direction"`

	EventTime     time.Time `json:"event_time"`
	EntryTime     time.Time `json:"entry_time"`
	EntryPrice    float64   `json:"entry_price"`
	Shares        int       `json:"shares"`
	PositionValue float64   `json:"position_value"`
	StopLoss      float64   `json:"stop_loss"`
	TakeProfit    float64   `json:"take_profit"`
	RiskAmount    float64   `json:"risk_amount"`

	Confidence float64  `json:"confidence"`
	Sentiment  float64  `json:"sentiment"`
	Themes     []string `json:"themes,omitempty"`

	ExitTime    time.Time `json:"exit_time,omitempty"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitReason  string    `json:"exit_reason,omitempty"`
	Commission  float64   `json:"commission"`
	PnL         float64   `json:"pnl"`
	ReturnPct   float64   `json:"return_pct"`
	HoldingDays int       `json:"holding_days"`
	Open        bool      `json:"open"`
	lastChecked time.Time
}

// EventDay is the calendar date of the triggering event as a bar key.
func (p *Position) EventDay() time.Time { return dateKey(p.EventTime) }

// Won reports a profitable closed position.
func (p *Position) Won() bool { return !p.Open && p.PnL > 0 }

func (p *Position) hitStopLoss(b barRange) bool {
	if p.Direction == risk.Long {
		return b.low <= p.StopLoss
	}
	return b.high >= p.StopLoss
}

func (p *Position) hitTakeProfit(b barRange) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Direction == risk.Long {
		return b.high >= p.TakeProfit
	}
	return b.low <= p.TakeProfit
}

// triggerPrice is the level, or the open when the bar gapped through it.
func (p *Position) triggerPrice(level float64, b barRange, adverse bool) float64 {
	long := p.Direction == risk.Long
	switch {
	case adverse && long, !adverse && !long:
		return math.Min(b.open, level)
	default:
		return math.Max(b.open, level)
	}
}

type barRange struct {
	open, high, low, close float64
}

func (p *Position) bookEntry() risk.BookEntry {
	return risk.BookEntry{
		ID:         p.ID,
		Ticker:     p.Ticker,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		Shares:     p.Shares,
	}
}
