package journal

import (
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// RunRecord summarises one simulator run. Percentages are fractions.
type RunRecord struct {
	RunID   string
	Created time.Time
	Label   string
	Dataset string
	Config  []byte // run configuration, JSON

	InitialCapital float64
	FinalCapital   float64
	TotalPnL       float64
	ReturnPct      float64

	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	ProfitFactor float64
	Sharpe       float64
	MaxDDPct     float64

	Error string

	Notes       []string
	NextActions []string
}

// NewRunRecord fills the result fields of a RunRecord from res.
func NewRunRecord(runID string, created time.Time, res sim.Result) RunRecord {
	return RunRecord{
		RunID:          runID,
		Created:        created,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		TotalPnL:       res.TotalPnL,
		ReturnPct:      res.TotalReturnPct,
		Trades:         res.TotalTrades,
		Wins:           res.WinningTrades,
		Losses:         res.LosingTrades,
		WinRate:        res.WinRate,
		ProfitFactor:   res.Stats.ProfitFactor,
		Sharpe:         res.Stats.Sharpe,
		MaxDDPct:       res.MaxDrawdownPct,
		Error:          res.Error,
	}
}

// Journal persists runs with their positions and events.
type Journal interface {
	RecordRun(RunRecord) error
	RecordPosition(runID string, p sim.Position) error
	RecordEvent(runID string, ev sim.Event) error
	Close() error
}

// RecordResult writes the run row followed by every position and event.
func RecordResult(j Journal, run RunRecord, res sim.Result) error {
	if err := j.RecordRun(run); err != nil {
		return err
	}
	for _, p := range res.Positions {
		if err := j.RecordPosition(run.RunID, p); err != nil {
			return err
		}
	}
	for _, ev := range res.Events {
		if err := j.RecordEvent(run.RunID, ev); err != nil {
			return err
		}
	}
	return nil
}

func parseDirection(s string) risk.Direction {
	if s == risk.Short.String() {
		return risk.Short
	}
	return risk.Long
}
