package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSizer(t *testing.T, account float64) *Sizer {
	t.Helper()
	s, err := NewSizer(DefaultConfig(), account, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestSizerWorkedExample(t *testing.T) {
	s := newTestSizer(t, 10000)

	res := s.Size("XYZ", 45.00, 42.00, 0.75)

	assert.InDelta(t, 0.5, res.Details["kelly_edge"], 1e-12)
	assert.InDelta(t, 0.125, res.Details["kelly_pct"], 1e-12)
	assert.Equal(t, 1.0, res.Details["confidence_scale"])
	assert.InDelta(t, 1250.0, res.Details["base_risk"], 1e-9)
	assert.Equal(t, []string{"risk_per_trade", "position_value"}, res.Details["caps"])
	assert.Equal(t, 22, res.Shares)
	assert.InDelta(t, 66.0, res.RiskAmount, 1e-9)
	assert.InDelta(t, 990.0, res.Details["position_value"], 1e-9)
}

func TestSizerConfidenceScale(t *testing.T) {
	tests := []struct {
		c    float64
		want float64
	}{
		{0.95, 1.0},
		{0.70, 1.0},
		{0.65, 0.75},
		{0.55, 0.50},
		{0.40, 0.25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, confidenceScale(tt.c))
	}
}

func TestSizerZeroEdgeAndBadStops(t *testing.T) {
	s := newTestSizer(t, 10000)

	assert.Zero(t, s.Size("A", 10, 9, 0.5).Shares)
	assert.Zero(t, s.Size("A", 10, 9, 0.3).Shares)
	assert.Zero(t, s.Size("A", 10, 10, 0.9).Shares)
	assert.Zero(t, s.Size("A", 0, -1, 0.9).Shares)
}

func TestSizerShortStopAboveEntry(t *testing.T) {
	s := newTestSizer(t, 10000)
	res := s.Size("A", 10, 11, 0.9)
	assert.Greater(t, res.Shares, 0)
	assert.LessOrEqual(t, res.RiskAmount, 10000*0.02+1e-9)
}

func TestSizerHeatCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPositionPct = 1.0
	s, err := NewSizer(cfg, 10000, zerolog.Nop())
	require.NoError(t, err)

	s.OpenPosition("A", 250)
	s.OpenPosition("B", 250)
	assert.InDelta(t, 0.05, s.PortfolioHeat(), 1e-12)

	// only 1% heat remains, so risk shrinks from 200 to 100
	res := s.Size("C", 20, 19, 0.9)
	assert.Equal(t, 100, res.Shares)
	assert.InDelta(t, 100.0, res.RiskAmount, 1e-9)
	assert.Contains(t, res.Details["caps"], "portfolio_heat")

	s.OpenPosition("C", res.RiskAmount)
	assert.LessOrEqual(t, s.PortfolioHeat(), cfg.MaxPortfolioHeatPct+1e-9)

	res = s.Size("D", 20, 19, 0.9)
	assert.Zero(t, res.Shares)
}

func TestSizerRiskBoundedAcrossInputs(t *testing.T) {
	s := newTestSizer(t, 25000)
	for c := 0.0; c <= 1.0; c += 0.05 {
		for _, entry := range []float64{0.5, 3, 45, 180} {
			res := s.Size("X", entry, entry*0.93, c)
			assert.LessOrEqual(t, res.RiskAmount, 25000*0.02+1e-9)
			assert.LessOrEqual(t, float64(res.Shares)*entry, 25000*0.10+1e-9)
		}
	}
}

func TestSizerBooks(t *testing.T) {
	s := newTestSizer(t, 10000)
	s.OpenPosition("A", 100)
	assert.InDelta(t, 0.01, s.PortfolioHeat(), 1e-12)

	s.ClosePosition(TradeOutcome{Ticker: "A", PnL: 500, ReturnPct: 0.05, Confidence: 0.7})
	assert.Zero(t, s.PortfolioHeat())
	assert.Equal(t, 10500.0, s.AccountSize())
	assert.Zero(t, s.MaxDrawdown())

	s.StartDay()
	s.ClosePosition(TradeOutcome{Ticker: "B", PnL: -1050})
	assert.InDelta(t, 0.10, s.MaxDrawdown(), 1e-12)
	assert.InDelta(t, 0.10, s.DailyDrawdown(), 1e-12)
}

func TestSizerStatusLevels(t *testing.T) {
	s := newTestSizer(t, 10000)
	st := s.Status()
	assert.Equal(t, Normal, st.Level)
	assert.True(t, st.Permits(0.6))

	s.ClosePosition(TradeOutcome{Ticker: "A", PnL: -1100})
	st = s.Status()
	assert.Equal(t, Alert, st.Level)
	assert.Equal(t, 0.5, st.PositionScale)
	assert.False(t, st.Permits(0.75))
	assert.True(t, st.Permits(0.76))

	s.ClosePosition(TradeOutcome{Ticker: "B", PnL: -1000})
	st = s.Status()
	assert.Equal(t, Critical, st.Level)
	assert.Equal(t, 0.25, st.PositionScale)
	assert.False(t, st.Permits(0.99))

	s.ClosePosition(TradeOutcome{Ticker: "C", PnL: -1000})
	st = s.Status()
	assert.Equal(t, Shutdown, st.Level)
	assert.True(t, st.CloseAll)
	assert.True(t, st.RequiresReset)

	// recovering does not clear a shutdown; only the manual reset does
	s.ClosePosition(TradeOutcome{Ticker: "D", PnL: 2000})
	assert.Equal(t, Shutdown, s.Status().Level)

	s.ResetDrawdown()
	assert.Equal(t, Normal, s.Status().Level)
}

func TestSizerStatusDailyAndHeat(t *testing.T) {
	s := newTestSizer(t, 10000)
	s.ClosePosition(TradeOutcome{Ticker: "A", PnL: 5000})
	s.StartDay()
	s.ClosePosition(TradeOutcome{Ticker: "B", PnL: -1275})
	// 8.5% daily, 8.5% from peak
	assert.Equal(t, Alert, s.Status().Level)

	h := newTestSizer(t, 10000)
	h.OpenPosition("X", 700)
	st := h.Status()
	assert.Equal(t, Alert, st.Level)
	assert.NotEmpty(t, st.Reasons)
}

func TestNewSizerRejectsBadInput(t *testing.T) {
	_, err := NewSizer(DefaultConfig(), 0, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.KellyFraction = 0
	_, err = NewSizer(cfg, 1000, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
