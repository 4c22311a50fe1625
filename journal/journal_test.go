package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleResult() sim.Result {
	entry := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	closed := sim.Position{
		ID:         "01HQZ0000000000000000000A1",
		Ticker:     "BHP",
		Direction:  risk.Long,
		EventTime:  entry.Add(-12 * time.Hour),
		EntryTime:  entry,
		EntryPrice: 50.05,
		Shares:     199,
		StopLoss:   48.05,
		TakeProfit: 54.05,
		Confidence: 0.82,
		Sentiment:  0.8,
		Themes:     []string{"earnings", "ASX"},
		ExitTime:   entry.AddDate(0, 0, 5),
		ExitPrice:  49.95,
		ExitReason: sim.ReasonHoldingPeriod,
		PnL:        -39.8,
		ReturnPct:  -0.002,
	}
	open := sim.Position{
		ID:         "01HQZ0000000000000000000B2",
		Ticker:     "RIO",
		Direction:  risk.Short,
		EventTime:  entry,
		EntryTime:  entry.AddDate(0, 0, 1),
		EntryPrice: 120,
		Shares:     40,
		StopLoss:   126,
		Open:       true,
	}
	return sim.Result{
		InitialCapital: 100000,
		FinalCapital:   99960.2,
		TotalPnL:       -39.8,
		TotalReturnPct: -0.000398,
		TotalTrades:    1,
		LosingTrades:   1,
		Positions:      []sim.Position{closed, open},
		Events: []sim.Event{
			{Seq: 1, Time: entry.Add(-12 * time.Hour), Kind: sim.KindNews, Ticker: "BHP", Description: "BHP announces results"},
			{Seq: 2, Time: entry.Add(-12 * time.Hour), Kind: sim.KindRecommendation, Ticker: "BHP", Description: "long",
				Details: map[string]any{"confidence": 0.82, "factor_freshness": 1.25}},
			{Seq: 3, Time: entry, Kind: sim.KindEntry, Ticker: "BHP", Description: "entered long"},
		},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	j := newTestSQLite(t)
	ctx := context.Background()

	res := sampleResult()
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	run := NewRunRecord("RUN1", created, res)
	run.Label = "baseline"
	run.Config = []byte(`{"kelly_fraction":0.25}`)
	require.NoError(t, RecordResult(j, run, res))

	got, err := j.GetRun(ctx, "RUN1")
	require.NoError(t, err)
	assert.Equal(t, "baseline", got.Label)
	assert.True(t, got.Created.Equal(created))
	assert.Equal(t, 1, got.Trades)
	assert.InDelta(t, -39.8, got.TotalPnL, 1e-9)
	assert.JSONEq(t, `{"kelly_fraction":0.25}`, string(got.Config))

	positions, err := j.ListPositions(ctx, "RUN1")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	p := positions[0]
	assert.Equal(t, "BHP", p.Ticker)
	assert.Equal(t, risk.Long, p.Direction)
	assert.Equal(t, []string{"earnings", "ASX"}, p.Themes)
	assert.Equal(t, sim.ReasonHoldingPeriod, p.ExitReason)
	assert.True(t, p.ExitTime.Equal(res.Positions[0].ExitTime))
	assert.False(t, p.Open)

	o := positions[1]
	assert.Equal(t, risk.Short, o.Direction)
	assert.True(t, o.Open)
	assert.True(t, o.ExitTime.IsZero())
	assert.Nil(t, o.Themes)

	events, err := j.ListEvents(ctx, "RUN1", "")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, sim.KindRecommendation, events[1].Kind)
	assert.Equal(t, 0.82, events[1].Details["confidence"])
	assert.Nil(t, events[0].Details)

	entries, err := j.ListEvents(ctx, "RUN1", sim.KindEntry)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Seq)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	j := newTestSQLite(t)

	_, err := j.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()
	j := newTestSQLite(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, j.RecordRun(RunRecord{RunID: id, Created: base.Add(time.Duration(i) * time.Hour)}))
	}

	runs, err := j.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "C", runs[0].RunID)
	assert.Equal(t, "A", runs[2].RunID)

	// duplicate run IDs are rejected
	assert.Error(t, j.RecordRun(RunRecord{RunID: "A", Created: base}))
}

func TestRiskSink(t *testing.T) {
	t.Parallel()
	j := newTestSQLite(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	var sink risk.RiskEventSink = j.RiskSink("RUN1")
	require.NoError(t, sink.RecordRiskEvent(risk.RiskEvent{
		Time:     at,
		Type:     risk.EventBreakerActivated,
		Severity: risk.SeverityCritical,
		Message:  "daily loss limit reached",
		Details:  map[string]any{"daily_loss_pct": 0.06},
	}))
	require.NoError(t, j.RiskSink("RUN2").RecordRiskEvent(risk.RiskEvent{Time: at, Type: risk.EventDailyReset}))

	events, err := j.ListRiskEvents(ctx, "RUN1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, risk.EventBreakerActivated, events[0].Type)
	assert.Equal(t, risk.SeverityCritical, events[0].Severity)
	assert.True(t, events[0].Time.Equal(at))
	assert.Equal(t, 0.06, events[0].Details["daily_loss_pct"])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "journal")

	j, err := NewCSV(dir)
	require.NoError(t, err)

	res := sampleResult()
	run := NewRunRecord("RUN1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), res)
	require.NoError(t, RecordResult(j, run, res))
	require.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, RunsFile))
	require.Len(t, runs, 2)
	assert.Equal(t, runsHeader, runs[0])
	assert.Equal(t, "RUN1", runs[1][0])
	assert.Equal(t, "2024-05-01T00:00:00Z", runs[1][1])

	positions := readCSV(t, filepath.Join(dir, PositionsFile))
	require.Len(t, positions, 3)
	assert.Equal(t, positionsHeader, positions[0])
	assert.Equal(t, "BHP", positions[1][2])
	assert.Equal(t, "LONG", positions[1][3])
	assert.Equal(t, "earnings|ASX", positions[1][11])
	assert.Equal(t, "", positions[2][12])
	assert.Equal(t, "true", positions[2][19])

	events := readCSV(t, filepath.Join(dir, EventsFile))
	require.Len(t, events, 4)
	assert.Equal(t, "RECOMMENDATION", events[2][3])
	assert.Equal(t, `{"confidence":0.82,"factor_freshness":1.25}`, events[2][6])
	assert.Equal(t, "{}", events[1][6])
}

func TestRunOrg(t *testing.T) {
	t.Parallel()

	run := NewRunRecord("RUN1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), sampleResult())
	run.Label = "baseline"
	run.Notes = []string{"flat market"}
	run.NextActions = []string{"widen stops"}

	var b strings.Builder
	require.NoError(t, run.WriteOrg(&b))
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "* SIMULATION: baseline"))
	assert.Contains(t, out, ":RUN_ID:      RUN1")
	assert.Contains(t, out, ":START_BAL:   100000.00")
	assert.Contains(t, out, ":NET_PL:      -39.80")
	assert.Contains(t, out, ":CREATED:     [2024-05-01 Wed 09:00]")
	assert.Contains(t, out, "| Losses  | 1 |")
	assert.Contains(t, out, "- flat market")
	assert.Contains(t, out, "- [ ] widen stops")
	assert.NotContains(t, out, "Run error")

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteOrgFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestFormatPositionOrg(t *testing.T) {
	t.Parallel()
	res := sampleResult()

	closed := FormatPositionOrg(res.Positions[0])
	assert.Contains(t, closed, "** Position: BHP LONG (01HQZ000)")
	assert.Contains(t, closed, ":SHARES: 199")
	assert.Contains(t, closed, ":ENTRY_TIME: 2024-03-06T00:00:00Z")
	assert.Contains(t, closed, ":REALIZED_PL: -39.80")
	assert.Contains(t, closed, ":REASON: holding period expired")
	assert.Contains(t, closed, ":THEMES: earnings ASX")

	open := FormatPositionOrg(res.Positions[1])
	assert.Contains(t, open, ":STATUS: open")
	assert.NotContains(t, open, ":REASON:")

	both := FormatPositionsOrg(res.Positions)
	assert.Equal(t, 2, strings.Count(both, "** Position:"))
}

func TestExportRunOrg(t *testing.T) {
	t.Parallel()
	j := newTestSQLite(t)
	ctx := context.Background()

	res := sampleResult()
	require.NoError(t, RecordResult(j, NewRunRecord("RUN1", time.Now(), res), res))

	out, err := j.ExportRunOrg(ctx, "RUN1")
	require.NoError(t, err)
	assert.Contains(t, out, ":RUN_ID:      RUN1")
	assert.Contains(t, out, "** Position: BHP")
	assert.Contains(t, out, "** Position: RIO")

	_, err = j.ExportRunOrg(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
