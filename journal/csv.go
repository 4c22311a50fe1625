package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// CSV file names written under the journal directory.
const (
	RunsFile      = "runs.csv"
	PositionsFile = "positions.csv"
	EventsFile    = "events.csv"
)

var (
	runsHeader = []string{"run_id", "created", "label", "dataset", "initial_capital", "final_capital", "total_pnl",
		"return_pct", "trades", "wins", "losses", "win_rate", "profit_factor", "sharpe", "max_dd_pct", "error"}
	positionsHeader = []string{"run_id", "position_id", "ticker", "direction", "event_time", "entry_time", "entry_price",
		"shares", "stop_loss", "take_profit", "confidence", "themes", "exit_time", "exit_price", "exit_reason",
		"commission", "pnl", "return_pct", "holding_days", "open"}
	eventsHeader = []string{"run_id", "seq", "time", "kind", "ticker", "description", "details"}
)

// CSVJournal appends runs, positions and events to three CSV files.
type CSVJournal struct {
	runs, positions, events *csv.Writer
	files                   []*os.File
}

// NewCSV creates the three journal files in dir, truncating existing ones.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}

	j := &CSVJournal{}
	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open(RunsFile, runsHeader); err == nil {
		if j.positions, err = open(PositionsFile, positionsHeader); err == nil {
			j.events, err = open(EventsFile, eventsHeader)
		}
	}
	if err != nil {
		j.closeFiles()
		return nil, fmt.Errorf("create csv journal: %w", err)
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	return write(j.runs, []string{
		r.RunID,
		ts(r.Created),
		r.Label,
		r.Dataset,
		f(r.InitialCapital),
		f(r.FinalCapital),
		f(r.TotalPnL),
		f(r.ReturnPct),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		f(r.WinRate),
		f(r.ProfitFactor),
		f(r.Sharpe),
		f(r.MaxDDPct),
		r.Error,
	})
}

func (j *CSVJournal) RecordPosition(runID string, p sim.Position) error {
	return write(j.positions, []string{
		runID,
		p.ID,
		p.Ticker,
		p.Direction.String(),
		ts(p.EventTime),
		ts(p.EntryTime),
		f(p.EntryPrice),
		strconv.Itoa(p.Shares),
		f(p.StopLoss),
		f(p.TakeProfit),
		f(p.Confidence),
		strings.Join(p.Themes, "|"),
		ts(p.ExitTime),
		f(p.ExitPrice),
		p.ExitReason,
		f(p.Commission),
		f(p.PnL),
		f(p.ReturnPct),
		strconv.Itoa(p.HoldingDays),
		strconv.FormatBool(p.Open),
	})
}

func (j *CSVJournal) RecordEvent(runID string, ev sim.Event) error {
	details, err := encodeDetails(ev.Details)
	if err != nil {
		return err
	}
	return write(j.events, []string{
		runID,
		strconv.Itoa(ev.Seq),
		ts(ev.Time),
		string(ev.Kind),
		ev.Ticker,
		ev.Description,
		details,
	})
}

func (j *CSVJournal) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.runs, j.positions, j.events} {
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	if err := j.closeFiles(); err != nil && first == nil {
		first = err
	}
	return first
}

func (j *CSVJournal) closeFiles() error {
	var first error
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
