package risk

import (
	"fmt"
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// CircuitBreakerState is the per-account breaker record.
type CircuitBreakerState struct {
	Active       bool      `json:"active"`
	Reason       string    `json:"reason,omitempty"`
	DailyLossPct float64   `json:"daily_loss_pct"`
	ActivatedAt  time.Time `json:"activated_at,omitempty"`
	DeactivateAt time.Time `json:"deactivate_at,omitempty"`
}

type breaker struct {
	state    CircuitBreakerState
	limit    float64
	resumeAt time.Duration
}

// resumeTime is resumeAt on the first trading day after t, in t's location.
func (b *breaker) resumeTime(t time.Time) time.Time {
	return market.NextTradingDay(t).Add(b.resumeAt)
}

// evaluate trips the breaker when lossPct reaches the limit. It reports
// whether the breaker changed state.
func (b *breaker) evaluate(lossPct float64, at time.Time) bool {
	b.state.DailyLossPct = lossPct
	if b.state.Active || lossPct < b.limit {
		return false
	}
	b.state.Active = true
	b.state.ActivatedAt = at
	b.state.DeactivateAt = b.resumeTime(at)
	b.state.Reason = fmt.Sprintf("daily loss %.2f%% >= limit %.2f%%", lossPct*100, b.limit*100)
	return true
}

// refresh lazily deactivates once now reaches the scheduled time.
func (b *breaker) refresh(now time.Time) bool {
	if !b.state.Active || now.Before(b.state.DeactivateAt) {
		return false
	}
	b.state = CircuitBreakerState{DailyLossPct: b.state.DailyLossPct}
	return true
}
