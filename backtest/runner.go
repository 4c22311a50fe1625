package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudirid/ares-master-control-program-sub000/journal"
	"github.com/rudirid/ares-master-control-program-sub000/market"
	"github.com/rudirid/ares-master-control-program-sub000/pkg/id"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// RiskJournal is a journal that can also take risk manager events.
type RiskJournal interface {
	journal.Journal
	RiskSink(runID string) risk.RiskEventSink
}

// Runner executes one simulation and journals it.
type Runner struct {
	Sim     sim.Config
	Risk    risk.Config
	Log     zerolog.Logger
	Journal journal.Journal // optional
	Options []sim.Option

	// Label and Dataset annotate the journal run row.
	Label   string
	Dataset string

	// Now stamps the run row; defaults to time.Now.
	Now func() time.Time
}

// Run is the outcome of Runner.Run.
type Run struct {
	ID     string
	Result sim.Result
}

// Run replays events against prices. The result is journaled when a
// journal is configured; a journal failure is returned alongside the
// result.
func (r *Runner) Run(ctx context.Context, events []market.NewsEvent, prices *market.PriceStore) (Run, error) {
	runID := id.New()
	log := r.Log.With().Str("run_id", runID).Logger()

	opts := append([]sim.Option(nil), r.Options...)
	if rj, ok := r.Journal.(RiskJournal); ok {
		opts = append(opts, sim.WithRiskSink(rj.RiskSink(runID)))
	}

	s, err := sim.New(r.Sim, r.Risk, log, opts...)
	if err != nil {
		return Run{}, err
	}

	start := time.Now()
	res, err := s.Run(ctx, events, prices)
	if err != nil {
		return Run{}, err
	}
	out := Run{ID: runID, Result: res}

	log.Info().
		Int("events", len(events)).
		Int("trades", res.TotalTrades).
		Float64("pnl", res.TotalPnL).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")

	if r.Journal == nil {
		return out, nil
	}
	if err := r.record(runID, res); err != nil {
		return out, fmt.Errorf("journal run %s: %w", runID, err)
	}
	return out, nil
}

func (r *Runner) record(runID string, res sim.Result) error {
	cfg, err := json.Marshal(struct {
		Simulation sim.Config  `json:"simulation"`
		Risk       risk.Config `json:"risk"`
	}{r.Sim, r.Risk})
	if err != nil {
		return err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rec := journal.NewRunRecord(runID, now(), res)
	rec.Label = r.Label
	rec.Dataset = r.Dataset
	rec.Config = cfg
	return journal.RecordResult(r.Journal, rec, res)
}
