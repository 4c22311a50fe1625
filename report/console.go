// Package report renders simulation results for people and monitoring.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

func money(x float64) string { return fmt.Sprintf("$%.2f", x) }
func pct(x float64) string   { return fmt.Sprintf("%.2f%%", x*100) }

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// WriteSummary prints the headline numbers of a run.
func WriteSummary(w io.Writer, res sim.Result) {
	t := newTable(w, "SIMULATION SUMMARY")

	t.AppendRows([]table.Row{
		{"Initial Capital", money(res.InitialCapital)},
		{"Final Capital", money(res.FinalCapital)},
		{"Total P/L", money(res.TotalPnL)},
		{"Total Return", pct(res.TotalReturnPct)},
		{"Max Drawdown", pct(res.MaxDrawdownPct)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", res.TotalTrades},
		{"Wins / Losses", fmt.Sprintf("%d / %d", res.WinningTrades, res.LosingTrades)},
		{"Win Rate", pct(res.WinRate)},
		{"Avg Win", money(res.AvgWin)},
		{"Avg Loss", money(res.AvgLoss)},
		{"Profit Factor", fmt.Sprintf("%.2f", res.Stats.ProfitFactor)},
		{"Sharpe", fmt.Sprintf("%.2f", res.Stats.Sharpe)},
	})
	if res.Stats.HasIC {
		t.AppendRow(table.Row{"Information Coefficient", fmt.Sprintf("%.3f", res.Stats.InformationCoefficient)})
	}
	if res.OpenPositions > 0 {
		t.AppendRow(table.Row{"Open Positions", res.OpenPositions})
	}
	if res.Error != "" {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Error", res.Error})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})
	t.Render()
}

// WritePositions prints one row per position.
func WritePositions(w io.Writer, positions []sim.Position) {
	t := newTable(w, "POSITIONS")
	t.AppendHeader(table.Row{"Ticker", "Side", "Entry", "Shares", "Entry $", "Exit", "Exit $", "P/L", "Reason"})

	total := 0.0
	for _, p := range positions {
		exit, exitPrice, reason := "", "", "open"
		if !p.Open {
			exit = p.ExitTime.Format("2006-01-02")
			exitPrice = fmt.Sprintf("%.3f", p.ExitPrice)
			reason = p.ExitReason
		}
		total += p.PnL
		t.AppendRow(table.Row{
			p.Ticker,
			p.Direction.String(),
			p.EntryTime.Format("2006-01-02"),
			p.Shares,
			fmt.Sprintf("%.3f", p.EntryPrice),
			exit,
			exitPrice,
			money(p.PnL),
			reason,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", money(total), ""})
	t.Render()
}

// WriteRisk prints the risk manager summary.
func WriteRisk(w io.Writer, s risk.Summary) {
	t := newTable(w, "RISK")

	t.AppendRows([]table.Row{
		{"Portfolio Value", money(s.PortfolioValue)},
		{"Exposure", fmt.Sprintf("%s (%s)", money(s.Exposure), pct(s.ExposurePct))},
		{"Open Positions", s.OpenPositions},
		{"Daily P/L", money(s.DailyPnL)},
		{"Daily Loss", pct(s.DailyLossPct)},
	})

	sectors := make([]string, 0, len(s.SectorCounts))
	for name := range s.SectorCounts {
		sectors = append(sectors, name)
	}
	sort.Strings(sectors)
	if len(sectors) > 0 {
		t.AppendSeparator()
		for _, name := range sectors {
			t.AppendRow(table.Row{"Sector " + name, s.SectorCounts[name]})
		}
	}

	t.AppendSeparator()
	if s.Breaker.Active {
		t.AppendRows([]table.Row{
			{"Circuit Breaker", "ACTIVE"},
			{"Reason", s.Breaker.Reason},
			{"Resumes", s.Breaker.DeactivateAt.Format("2006-01-02 15:04 MST")},
		})
	} else {
		t.AppendRow(table.Row{"Circuit Breaker", "inactive"})
	}
	t.Render()
}

// WriteSweep prints one row per sweep point in the given order.
func WriteSweep(w io.Writer, results []backtest.SweepResult) {
	t := newTable(w, "PARAMETER SWEEP")
	t.AppendHeader(table.Row{"Kelly", "ATR x", "Trades", "Win Rate", "Return", "Max DD", "Sharpe"})
	for _, r := range results {
		t.AppendRow(table.Row{
			fmt.Sprintf("%.2f", r.Point.KellyFraction),
			fmt.Sprintf("%.2f", r.Point.ATRMultiplier),
			r.Result.TotalTrades,
			pct(r.Result.WinRate),
			pct(r.Result.TotalReturnPct),
			pct(r.Result.MaxDrawdownPct),
			fmt.Sprintf("%.2f", r.Result.Stats.Sharpe),
		})
	}
	t.Render()
}
