package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

const recentEventsInSummary = 10

// BookEntry is the manager's view of one open position.
type BookEntry struct {
	ID         string
	Ticker     string
	Direction  Direction
	EntryPrice float64
	Shares     int
}

// Value is the entry notional.
func (b BookEntry) Value() float64 { return b.EntryPrice * float64(b.Shares) }

// PositionBook exposes the caller's open positions.
type PositionBook interface {
	OpenPositions() []BookEntry
	Lookup(id string) (BookEntry, bool)
}

// Violation is one failed gate.
type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Decision is the outcome of Validate.
type Decision struct {
	Allowed    bool           `json:"allowed"`
	Violations []Violation    `json:"violations,omitempty"`
	Shares     int            `json:"shares"`
	StopPrice  float64        `json:"stop_price"`
	Details    map[string]any `json:"details,omitempty"`
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reasons lists the violation messages.
func (d Decision) Reasons() []string {
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Msg
	}
	return out
}

// Summary is the on-demand risk snapshot.
type Summary struct {
	PortfolioValue float64             `json:"portfolio_value"`
	Exposure       float64             `json:"exposure"`
	ExposurePct    float64             `json:"exposure_pct"`
	OpenPositions  int                 `json:"open_positions"`
	SectorCounts   map[string]int      `json:"sector_counts"`
	DailyPnL       float64             `json:"daily_pnl"`
	DailyLossPct   float64             `json:"daily_loss_pct"`
	Breaker        CircuitBreakerState `json:"circuit_breaker"`
	RecentEvents   []RiskEvent         `json:"recent_events"`
}

// Manager is the pre-trade gate and post-trade monitor for one account.
type Manager struct {
	cfg     Config
	log     zerolog.Logger
	book    PositionBook
	sectors SectorMap
	clock   func() time.Time
	sink    RiskEventSink

	portfolioValue  float64
	startOfDayValue float64
	dailyPnL        float64
	day             time.Time

	breaker breaker
	events  []RiskEvent
}

// NewManager validates cfg and binds the manager to a position book.
func NewManager(cfg Config, portfolioValue float64, book PositionBook, log zerolog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if portfolioValue <= 0 {
		return nil, fmt.Errorf("%w: portfolio value must be positive, got %v", ErrInvalidConfig, portfolioValue)
	}
	if book == nil {
		return nil, fmt.Errorf("%w: position book is required", ErrInvalidConfig)
	}
	resume, _ := cfg.resumeOffset()

	return &Manager{
		cfg:             cfg,
		log:             log.With().Str("component", "risk").Logger(),
		book:            book,
		sectors:         NewSectorMap(cfg.Sectors),
		clock:           time.Now,
		portfolioValue:  portfolioValue,
		startOfDayValue: portfolioValue,
		breaker:         breaker{limit: cfg.DailyLossLimitPct, resumeAt: resume},
	}, nil
}

// SetClock replaces the time source; simulations pass simulated time.
func (m *Manager) SetClock(clock func() time.Time) { m.clock = clock }

// SetSink forwards every risk event to sink as well as the in-memory log.
func (m *Manager) SetSink(sink RiskEventSink) { m.sink = sink }

// Sector resolves a ticker through the manager's table.
func (m *Manager) Sector(ticker string) string { return m.sectors.Sector(ticker) }

// Events returns a copy of the risk event log.
func (m *Manager) Events() []RiskEvent { return append([]RiskEvent(nil), m.events...) }

// Breaker returns the breaker state after a lazy refresh.
func (m *Manager) Breaker() CircuitBreakerState {
	m.refreshBreaker()
	return m.breaker.state
}

// PortfolioValue is initial capital plus realized P/L.
func (m *Manager) PortfolioValue() float64 { return m.portfolioValue }

func (m *Manager) emit(ev RiskEvent) {
	if ev.Time.IsZero() {
		ev.Time = m.clock()
	}
	m.events = append(m.events, ev)

	l := m.log.Info()
	if ev.Severity >= SeverityHigh {
		l = m.log.Warn()
	}
	l.Str("type", ev.Type).Str("severity", ev.Severity.String()).Str("ticker", ev.Ticker).Msg(ev.Message)

	if m.sink != nil {
		if err := m.sink.RecordRiskEvent(ev); err != nil {
			m.log.Error().Err(err).Str("type", ev.Type).Msg("risk event sink failed")
		}
	}
}

// RecordDrawdownReset logs a manual reset of the sizer's drawdown books.
func (m *Manager) RecordDrawdownReset(previous Level, maxDrawdown, account float64) {
	m.emit(RiskEvent{
		Type:     EventDrawdownReset,
		Severity: SeverityHigh,
		Message:  "drawdown reset from " + previous.String(),
		Details: map[string]any{
			"previous_level": previous.String(),
			"max_drawdown":   maxDrawdown,
			"account":        account,
		},
	})
}

func (m *Manager) refreshBreaker() {
	now := m.clock()
	if m.breaker.refresh(now) {
		m.emit(RiskEvent{
			Time:     now,
			Type:     EventBreakerDeactivated,
			Severity: SeverityMedium,
			Message:  "circuit breaker deactivated",
		})
	}
}

// StartDay resets daily accounting when date falls on a new calendar day.
func (m *Manager) StartDay(date time.Time) {
	y, mo, d := date.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, date.Location())
	if day.Equal(m.day) {
		return
	}
	m.day = day
	m.dailyPnL = 0
	m.startOfDayValue = m.portfolioValue
	m.breaker.state.DailyLossPct = 0
	m.log.Debug().Time("day", day).Float64("value", m.portfolioValue).Msg("day start")
	m.refreshBreaker()
}

// DailyLossPct is today's realized loss as a fraction of the day's opening value.
func (m *Manager) DailyLossPct() float64 {
	if m.startOfDayValue <= 0 {
		return 0
	}
	return math.Max(0, -m.dailyPnL/m.startOfDayValue)
}

// RecordRealized books realized P/L and trips the breaker on a breach.
func (m *Manager) RecordRealized(pnl float64, at time.Time) {
	m.portfolioValue += pnl
	m.dailyPnL += pnl

	loss := m.DailyLossPct()
	if m.breaker.evaluate(loss, at) {
		st := m.breaker.state
		m.emit(RiskEvent{
			Time:     at,
			Type:     EventBreakerActivated,
			Severity: SeverityCritical,
			Message:  st.Reason,
			Details: map[string]any{
				"daily_loss_pct": loss,
				"deactivate_at":  st.DeactivateAt.Format(time.RFC3339),
			},
		})
	}
}

// Validate runs the pre-trade gate in order: circuit breaker, confidence,
// sector count, exposure, size. The breaker short-circuits.
func (m *Manager) Validate(ticker string, confidence, entry float64) Decision {
	d := Decision{Allowed: true, Details: map[string]any{"ticker": ticker, "confidence": confidence, "entry": entry}}

	m.refreshBreaker()
	if m.breaker.state.Active {
		d.add("CIRCUIT_BREAKER", "circuit breaker active: "+m.breaker.state.Reason)
		d.Details["deactivate_at"] = m.breaker.state.DeactivateAt.Format(time.RFC3339)
		m.reject(ticker, d)
		return d
	}

	if confidence < m.cfg.MinConfidence {
		d.add("LOW_CONFIDENCE", fmt.Sprintf("confidence %.3f below minimum %.3f", confidence, m.cfg.MinConfidence))
	}

	open := m.book.OpenPositions()
	sector := m.sectors.Sector(ticker)
	inSector := 0
	exposure := 0.0
	for _, p := range open {
		if m.sectors.Sector(p.Ticker) == sector {
			inSector++
		}
		exposure += p.Value()
	}
	d.Details["sector"] = sector
	d.Details["sector_count"] = inSector
	if inSector >= m.cfg.MaxPositionsPerSector {
		d.add("SECTOR_LIMIT", fmt.Sprintf("%d open positions in %s (max %d)", inSector, sector, m.cfg.MaxPositionsPerSector))
	}

	exposurePct := exposure / m.portfolioValue
	d.Details["exposure_pct"] = exposurePct
	if exposurePct >= m.cfg.MaxExposurePct {
		d.add("EXPOSURE_LIMIT", fmt.Sprintf("exposure %.1f%% at or above max %.1f%%", exposurePct*100, m.cfg.MaxExposurePct*100))
	}

	if d.Allowed {
		d.Shares, d.StopPrice = m.size(confidence, entry, exposure)
		d.Details["shares"] = d.Shares
		if d.Shares <= 0 {
			d.add("ZERO_SIZE", "computed position size is zero")
		}
	}

	if !d.Allowed {
		m.reject(ticker, d)
		return d
	}

	m.emit(RiskEvent{
		Type:     EventPositionApproved,
		Severity: SeverityLow,
		Ticker:   ticker,
		Message:  fmt.Sprintf("approved %d shares at %.4f", d.Shares, entry),
		Details:  d.Details,
	})
	return d
}

func (m *Manager) reject(ticker string, d Decision) {
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	m.emit(RiskEvent{
		Type:     EventPositionRejected,
		Severity: SeverityMedium,
		Ticker:   ticker,
		Message:  d.Violations[0].Msg,
		Details:  map[string]any{"violations": codes},
	})
}

// size is Kelly-style sizing against a fixed percentage stop, capped by the
// per-trade risk, position value and remaining exposure headroom.
func (m *Manager) size(confidence, entry, exposure float64) (int, float64) {
	if entry <= 0 {
		return 0, 0
	}
	riskPerShare := entry * m.cfg.StopLossPct
	stop := entry - riskPerShare

	edge := math.Max(0, (confidence-0.5)*2)
	risk := m.portfolioValue * edge * m.cfg.KellyFraction * confidenceScale(confidence)
	risk = math.Min(risk, m.portfolioValue*m.cfg.MaxRiskPerTradePct)

	shares := float64(floorShares(risk / riskPerShare))

	maxValue := m.portfolioValue * m.cfg.MaxPositionPct
	headroom := m.portfolioValue*m.cfg.MaxExposurePct - exposure
	maxValue = math.Min(maxValue, headroom)
	if shares*entry > maxValue {
		shares = float64(floorShares(maxValue / entry))
	}
	if shares < 0 {
		shares = 0
	}
	return int(shares), stop
}

// CheckStopLoss compares price with the position's entry in its direction.
func (m *Manager) CheckStopLoss(positionID string, price float64) (bool, string) {
	p, ok := m.book.Lookup(positionID)
	if !ok {
		return false, "position not found"
	}
	if p.EntryPrice <= 0 {
		return false, "no entry price"
	}

	move := float64(p.Direction) * (price - p.EntryPrice) / p.EntryPrice
	if move > -m.cfg.StopLossPct {
		return false, ""
	}

	reason := fmt.Sprintf("stop loss: %s moved %.2f%% against entry (limit %.2f%%)",
		p.Direction, -move*100, m.cfg.StopLossPct*100)
	m.emit(RiskEvent{
		Type:     EventStopLoss,
		Severity: SeverityHigh,
		Ticker:   p.Ticker,
		Message:  reason,
		Details: map[string]any{
			"position_id": positionID,
			"entry":       p.EntryPrice,
			"price":       price,
		},
	})
	return true, reason
}

// Summary snapshots exposure, sector counts, daily loss and the breaker.
func (m *Manager) Summary() Summary {
	m.refreshBreaker()

	s := Summary{
		PortfolioValue: m.portfolioValue,
		SectorCounts:   map[string]int{},
		DailyPnL:       m.dailyPnL,
		DailyLossPct:   m.DailyLossPct(),
		Breaker:        m.breaker.state,
	}
	for _, p := range m.book.OpenPositions() {
		s.OpenPositions++
		s.Exposure += p.Value()
		s.SectorCounts[m.sectors.Sector(p.Ticker)]++
	}
	if m.portfolioValue > 0 {
		s.ExposurePct = s.Exposure / m.portfolioValue
	}

	start := len(m.events) - recentEventsInSummary
	if start < 0 {
		start = 0
	}
	s.RecentEvents = append([]RiskEvent(nil), m.events[start:]...)
	return s
}
