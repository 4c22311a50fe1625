package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBook struct {
	entries []BookEntry
}

func (b *fakeBook) OpenPositions() []BookEntry { return b.entries }

func (b *fakeBook) Lookup(id string) (BookEntry, bool) {
	for _, e := range b.entries {
		if e.ID == id {
			return e, true
		}
	}
	return BookEntry{}, false
}

type recordingSink struct {
	events []RiskEvent
	err    error
}

func (s *recordingSink) RecordRiskEvent(ev RiskEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, cfg Config, value float64) (*Manager, *fakeBook, *testClock) {
	t.Helper()
	book := &fakeBook{}
	m, err := NewManager(cfg, value, book, zerolog.Nop())
	require.NoError(t, err)
	clk := &testClock{now: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)} // Tuesday
	m.SetClock(clk.Now)
	return m, book, clk
}

func TestManagerApprovesAndSizes(t *testing.T) {
	m, _, _ := newTestManager(t, DefaultConfig(), 100000)

	d := m.Validate("BHP", 0.8, 50)
	require.True(t, d.Allowed, d.Reasons())
	assert.Equal(t, 200, d.Shares)
	assert.InDelta(t, 47.5, d.StopPrice, 1e-9)
	assert.Equal(t, "Materials", d.Details["sector"])

	evs := m.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, EventPositionApproved, evs[0].Type)
	assert.Equal(t, SeverityLow, evs[0].Severity)
}

func TestManagerCircuitBreakerWorkedExample(t *testing.T) {
	m, _, clk := newTestManager(t, DefaultConfig(), 100000)
	sink := &recordingSink{}
	m.SetSink(sink)

	m.StartDay(clk.now)
	m.RecordRealized(-2000, clk.now)
	assert.False(t, m.Breaker().Active)

	clk.now = clk.now.Add(3 * time.Hour)
	m.RecordRealized(-3000, clk.now)

	st := m.Breaker()
	require.True(t, st.Active)
	assert.InDelta(t, 0.05, st.DailyLossPct, 1e-12)
	assert.True(t, st.DeactivateAt.Equal(time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)), st.DeactivateAt)

	d := m.Validate("CBA", 0.95, 100)
	assert.False(t, d.Allowed)
	require.Len(t, d.Violations, 1)
	assert.Equal(t, "CIRCUIT_BREAKER", d.Violations[0].Code)
	assert.Contains(t, d.Violations[0].Msg, "circuit breaker")

	// next morning before the resume time
	clk.now = time.Date(2024, 3, 6, 9, 59, 0, 0, time.UTC)
	m.StartDay(clk.now)
	assert.False(t, m.Validate("CBA", 0.95, 100).Allowed)

	clk.now = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	assert.True(t, m.Validate("CBA", 0.95, 100).Allowed)

	var types []string
	for _, ev := range sink.events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventBreakerActivated)
	assert.Contains(t, types, EventBreakerDeactivated)
	for _, ev := range sink.events {
		if ev.Type == EventBreakerActivated {
			assert.Equal(t, SeverityCritical, ev.Severity)
		}
	}
}

func TestManagerBreakerSkipsWeekend(t *testing.T) {
	m, _, clk := newTestManager(t, DefaultConfig(), 100000)
	clk.now = time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC) // Friday
	m.StartDay(clk.now)
	m.RecordRealized(-6000, clk.now)

	st := m.Breaker()
	require.True(t, st.Active)
	assert.Equal(t, time.Monday, st.DeactivateAt.Weekday())
	assert.Equal(t, 11, st.DeactivateAt.Day())
}

func TestManagerDailyResetKeepsBreakerButClearsLoss(t *testing.T) {
	m, _, clk := newTestManager(t, DefaultConfig(), 100000)
	m.StartDay(clk.now)
	m.RecordRealized(-4000, clk.now)
	assert.InDelta(t, 0.04, m.DailyLossPct(), 1e-12)

	clk.now = clk.now.AddDate(0, 0, 1)
	m.StartDay(clk.now)
	assert.Zero(t, m.DailyLossPct())

	// a fresh 4% on the new day's smaller base stays under the limit
	m.RecordRealized(-3840, clk.now)
	assert.False(t, m.Breaker().Active)
}

func TestManagerGateViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPositionsPerSector = 2
	cfg.MaxExposurePct = 0.25
	m, book, _ := newTestManager(t, cfg, 100000)

	d := m.Validate("BHP", 0.55, 50)
	assert.False(t, d.Allowed)
	assert.Equal(t, "LOW_CONFIDENCE", d.Violations[0].Code)

	book.entries = []BookEntry{
		{ID: "1", Ticker: "RIO", Direction: Long, EntryPrice: 100, Shares: 100},
		{ID: "2", Ticker: "FMG", Direction: Long, EntryPrice: 20, Shares: 500},
	}
	d = m.Validate("BHP", 0.8, 50)
	assert.False(t, d.Allowed)
	assert.Equal(t, "SECTOR_LIMIT", d.Violations[0].Code)

	book.entries = append(book.entries, BookEntry{ID: "3", Ticker: "CBA", Direction: Long, EntryPrice: 100, Shares: 50})
	d = m.Validate("CSL", 0.8, 50)
	assert.False(t, d.Allowed)
	assert.Equal(t, "EXPOSURE_LIMIT", d.Violations[0].Code)

	last := m.Events()[len(m.Events())-1]
	assert.Equal(t, EventPositionRejected, last.Type)
	assert.Equal(t, SeverityMedium, last.Severity)
}

func TestManagerSizeRespectsExposureHeadroom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxExposurePct = 0.25
	m, book, _ := newTestManager(t, cfg, 100000)
	book.entries = []BookEntry{{ID: "1", Ticker: "CBA", Direction: Long, EntryPrice: 100, Shares: 240}}

	d := m.Validate("CSL", 0.8, 50)
	require.True(t, d.Allowed)
	// 25000 cap minus 24000 open leaves 1000 of headroom
	assert.Equal(t, 20, d.Shares)
}

func TestManagerUnknownSector(t *testing.T) {
	m, _, _ := newTestManager(t, DefaultConfig(), 100000)
	assert.Equal(t, UnknownSector, m.Sector("ZZZ"))
	assert.Equal(t, "Financials", m.Sector("cba.ax"))

	cfg := DefaultConfig()
	cfg.Sectors = map[string]string{"zzz": "Materials"}
	m2, _, _ := newTestManager(t, cfg, 100000)
	assert.Equal(t, "Materials", m2.Sector("ZZZ"))
}

func TestManagerCheckStopLoss(t *testing.T) {
	m, book, _ := newTestManager(t, DefaultConfig(), 100000)
	book.entries = []BookEntry{
		{ID: "long", Ticker: "BHP", Direction: Long, EntryPrice: 100, Shares: 10},
		{ID: "short", Ticker: "RIO", Direction: Short, EntryPrice: 100, Shares: 10},
	}

	hit, _ := m.CheckStopLoss("long", 96)
	assert.False(t, hit)

	hit, reason := m.CheckStopLoss("long", 95)
	assert.True(t, hit)
	assert.Contains(t, reason, "stop loss")

	hit, _ = m.CheckStopLoss("short", 95)
	assert.False(t, hit)
	hit, _ = m.CheckStopLoss("short", 105.5)
	assert.True(t, hit)

	hit, reason = m.CheckStopLoss("missing", 1)
	assert.False(t, hit)
	assert.Equal(t, "position not found", reason)

	var stops int
	for _, ev := range m.Events() {
		if ev.Type == EventStopLoss {
			stops++
			assert.Equal(t, SeverityHigh, ev.Severity)
		}
	}
	assert.Equal(t, 2, stops)
}

func TestManagerSummary(t *testing.T) {
	m, book, clk := newTestManager(t, DefaultConfig(), 100000)
	book.entries = []BookEntry{
		{ID: "1", Ticker: "BHP", Direction: Long, EntryPrice: 50, Shares: 100},
		{ID: "2", Ticker: "RIO", Direction: Long, EntryPrice: 100, Shares: 50},
		{ID: "3", Ticker: "CBA", Direction: Long, EntryPrice: 100, Shares: 10},
	}
	m.StartDay(clk.now)
	m.RecordRealized(-1000, clk.now)

	s := m.Summary()
	assert.Equal(t, 99000.0, s.PortfolioValue)
	assert.Equal(t, 11000.0, s.Exposure)
	assert.InDelta(t, 11000.0/99000.0, s.ExposurePct, 1e-12)
	assert.Equal(t, 3, s.OpenPositions)
	assert.Equal(t, map[string]int{"Materials": 2, "Financials": 1}, s.SectorCounts)
	assert.InDelta(t, 0.01, s.DailyLossPct, 1e-12)
	assert.False(t, s.Breaker.Active)
}

func TestManagerSinkErrorsDoNotBlock(t *testing.T) {
	m, _, _ := newTestManager(t, DefaultConfig(), 100000)
	m.SetSink(&recordingSink{err: errors.New("disk full")})

	d := m.Validate("BHP", 0.8, 50)
	assert.True(t, d.Allowed)
	assert.Len(t, m.Events(), 1)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(DefaultConfig(), 100, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(DefaultConfig(), 0, &fakeBook{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
