package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// Workbook sheet names.
const (
	SummarySheet   = "Summary"
	PositionsSheet = "Positions"
	EventsSheet    = "Events"
)

type excelStyles struct {
	header   int
	currency int
	percent  int
	date     int
}

func newExcelStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return s, err
	}
	if s.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 7}); err != nil {
		return s, err
	}
	if s.percent, err = fx.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return s, err
	}
	fmtDate := "yyyy-mm-dd hh:mm"
	s.date, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &fmtDate})
	return s, err
}

// WriteWorkbook saves res as an xlsx file with summary, position and event
// sheets.
func WriteWorkbook(path string, res sim.Result) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), SummarySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(PositionsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(EventsSheet); err != nil {
		return err
	}

	styles, err := newExcelStyles(fx)
	if err != nil {
		return fmt.Errorf("excel styles: %w", err)
	}

	if err := writeSummarySheet(fx, res, styles); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writePositionsSheet(fx, res.Positions, styles); err != nil {
		return fmt.Errorf("positions sheet: %w", err)
	}
	if err := writeEventsSheet(fx, res.Events, styles); err != nil {
		return fmt.Errorf("events sheet: %w", err)
	}

	return fx.SaveAs(path)
}

func writeHeader(fx *excelize.File, sheet string, header []any, styles excelStyles) error {
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", lastCol, 16)
}

func writeSummarySheet(fx *excelize.File, res sim.Result, styles excelStyles) error {
	const sheet = SummarySheet
	if err := writeHeader(fx, sheet, []any{"Metric", "Value"}, styles); err != nil {
		return err
	}

	rows := []struct {
		name  string
		value any
		style int
	}{
		{"Initial Capital", res.InitialCapital, styles.currency},
		{"Final Capital", res.FinalCapital, styles.currency},
		{"Total P/L", res.TotalPnL, styles.currency},
		{"Total Return", res.TotalReturnPct, styles.percent},
		{"Max Drawdown", res.MaxDrawdownPct, styles.percent},
		{"Trades", res.TotalTrades, 0},
		{"Winning Trades", res.WinningTrades, 0},
		{"Losing Trades", res.LosingTrades, 0},
		{"Win Rate", res.WinRate, styles.percent},
		{"Avg Win", res.AvgWin, styles.currency},
		{"Avg Loss", res.AvgLoss, styles.currency},
		{"Profit Factor", res.Stats.ProfitFactor, 0},
		{"Sharpe", res.Stats.Sharpe, 0},
		{"Open Positions", res.OpenPositions, 0},
		{"Error", res.Error, 0},
	}
	for i, r := range rows {
		row := i + 2
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &[]any{r.name, r.value}); err != nil {
			return err
		}
		if r.style != 0 {
			cell := fmt.Sprintf("B%d", row)
			if err := fx.SetCellStyle(sheet, cell, cell, r.style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePositionsSheet(fx *excelize.File, positions []sim.Position, styles excelStyles) error {
	const sheet = PositionsSheet
	header := []any{"ID", "Ticker", "Direction", "Entry Time", "Entry Price", "Shares", "Stop Loss",
		"Take Profit", "Confidence", "Exit Time", "Exit Price", "Exit Reason", "Commission", "P/L", "Return"}
	if err := writeHeader(fx, sheet, header, styles); err != nil {
		return err
	}

	for i, p := range positions {
		row := i + 2
		var exitTime any
		reason := p.ExitReason
		if p.Open {
			reason = "open"
		} else {
			exitTime = p.ExitTime
		}
		values := []any{p.ID, p.Ticker, p.Direction.String(), p.EntryTime, p.EntryPrice, p.Shares, p.StopLoss,
			p.TakeProfit, p.Confidence, exitTime, p.ExitPrice, reason, p.Commission, p.PnL, p.ReturnPct}
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		for col, style := range map[string]int{"D": styles.date, "J": styles.date, "N": styles.currency, "O": styles.percent} {
			cell := fmt.Sprintf("%s%d", col, row)
			if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEventsSheet(fx *excelize.File, events []sim.Event, styles excelStyles) error {
	const sheet = EventsSheet
	if err := writeHeader(fx, sheet, []any{"Seq", "Time", "Kind", "Ticker", "Description", "Details"}, styles); err != nil {
		return err
	}

	for i, ev := range events {
		row := i + 2
		details := ""
		if len(ev.Details) > 0 {
			b, err := json.Marshal(ev.Details)
			if err != nil {
				return err
			}
			details = string(b)
		}
		values := []any{ev.Seq, ev.Time, string(ev.Kind), ev.Ticker, ev.Description, details}
		if err := fx.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellStyle(sheet, cell, cell, styles.date); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "E", "F", 48)
}
