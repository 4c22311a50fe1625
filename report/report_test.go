package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

func sampleResult() sim.Result {
	entry := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	return sim.Result{
		InitialCapital: 100000,
		FinalCapital:   100460.2,
		TotalPnL:       460.2,
		TotalReturnPct: 0.004602,
		TotalTrades:    2,
		WinningTrades:  1,
		LosingTrades:   1,
		WinRate:        0.5,
		AvgWin:         500,
		AvgLoss:        -39.8,
		MaxDrawdownPct: 0.000398,
		OpenPositions:  1,
		Positions: []sim.Position{
			{ID: "P1", Ticker: "BHP", Direction: risk.Long, EntryTime: entry, EntryPrice: 50.05, Shares: 199,
				Confidence: 0.82, ExitTime: entry.AddDate(0, 0, 5), ExitPrice: 49.95, ExitReason: sim.ReasonHoldingPeriod, PnL: -39.8},
			{ID: "P2", Ticker: "RIO", Direction: risk.Short, EntryTime: entry, EntryPrice: 120, Shares: 40,
				Confidence: 0.75, ExitTime: entry.AddDate(0, 0, 2), ExitPrice: 107.5, ExitReason: sim.ReasonTakeProfit, PnL: 500},
			{ID: "P3", Ticker: "CBA", Direction: risk.Long, EntryTime: entry, EntryPrice: 110, Shares: 10,
				Confidence: 0.7, Open: true},
		},
		Events: []sim.Event{
			{Seq: 1, Time: entry, Kind: sim.KindNews, Ticker: "BHP", Description: "news"},
			{Seq: 2, Time: entry, Kind: sim.KindRecommendation, Ticker: "BHP", Description: "long",
				Details: map[string]any{"confidence": 0.82}},
			{Seq: 3, Time: entry, Kind: sim.KindNews, Ticker: "RIO", Description: "news"},
		},
		Stats: risk.Stats{Trades: 2, ProfitFactor: 12.56, Sharpe: 0.7},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "SIMULATION SUMMARY")
	assert.Contains(t, out, "$100460.20")
	assert.Contains(t, out, "0.46%")
	assert.Contains(t, out, "1 / 1")
	assert.Contains(t, out, "Open Positions")
	assert.NotContains(t, out, "Error")

	res := sampleResult()
	res.Error = sim.ErrNoPricedArticles
	buf.Reset()
	WriteSummary(&buf, res)
	assert.Contains(t, buf.String(), sim.ErrNoPricedArticles)
}

func TestWritePositions(t *testing.T) {
	var buf bytes.Buffer
	WritePositions(&buf, sampleResult().Positions)
	out := buf.String()

	assert.Contains(t, out, "BHP")
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, sim.ReasonTakeProfit)
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "$460.20")
}

func TestWriteRisk(t *testing.T) {
	var buf bytes.Buffer
	WriteRisk(&buf, risk.Summary{
		PortfolioValue: 95000,
		SectorCounts:   map[string]int{"Materials": 2, "Financials": 1},
		DailyLossPct:   0.051,
		Breaker: risk.CircuitBreakerState{
			Active:       true,
			Reason:       "daily loss limit",
			DeactivateAt: time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC),
		},
	})
	out := buf.String()

	assert.Contains(t, out, "Sector Financials")
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "2024-03-08 10:00 UTC")
	assert.Contains(t, out, "5.10%")
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.xlsx")
	require.NoError(t, WriteWorkbook(path, sampleResult()))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{SummarySheet, PositionsSheet, EventsSheet}, fx.GetSheetList())

	summary, err := fx.GetRows(SummarySheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Equal(t, "Initial Capital", summary[1][0])
	assert.Equal(t, "100000", summary[1][1])

	positions, err := fx.GetRows(PositionsSheet)
	require.NoError(t, err)
	require.Len(t, positions, 4)
	assert.Equal(t, "Ticker", positions[0][1])
	assert.Equal(t, "RIO", positions[2][1])
	assert.Equal(t, "open", positions[3][11])

	events, err := fx.GetRows(EventsSheet)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "RECOMMENDATION", events[2][2])
	assert.Equal(t, `{"confidence":0.82}`, events[2][5])
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics("ares")
	m.Observe(sampleResult())

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	path := filepath.Join(t.TempDir(), "ares.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "ares_final_capital 100460.2")
	assert.Contains(t, out, `ares_trades_total{outcome="win"} 1`)
	assert.Contains(t, out, `ares_trades_total{outcome="loss"} 1`)
	assert.Contains(t, out, `ares_exits_total{reason="take profit"} 1`)
	assert.Contains(t, out, `ares_events_total{kind="NEWS"} 2`)
	assert.Contains(t, out, "ares_entry_confidence_count 3")
	assert.Contains(t, out, "ares_trade_pnl_count 2")
	assert.Contains(t, out, "ares_open_positions 1")
}

func TestWriteSweep(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	WriteSweep(&buf, []backtest.SweepResult{
		{Point: backtest.SweepPoint{KellyFraction: 0.25, ATRMultiplier: 2}, Result: res},
		{Point: backtest.SweepPoint{KellyFraction: 0.5, ATRMultiplier: 3}, Result: sim.Result{}},
	})
	out := buf.String()

	assert.Contains(t, out, "PARAMETER SWEEP")
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "3.00")
	assert.Contains(t, out, "50.00%")
}
