package backtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rudirid/ares-master-control-program-sub000/market"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// SweepPoint is one parameter combination.
type SweepPoint struct {
	KellyFraction float64 `json:"kelly_fraction"`
	ATRMultiplier float64 `json:"atr_multiplier"`
}

func (p SweepPoint) String() string {
	return fmt.Sprintf("kelly=%.2f atr=%.2f", p.KellyFraction, p.ATRMultiplier)
}

// SweepResult pairs a point with its run.
type SweepResult struct {
	Point  SweepPoint `json:"point"`
	Result sim.Result `json:"result"`
}

// Grid is the cartesian product of the two axes, Kelly fraction major.
func Grid(kellyFractions, atrMultipliers []float64) []SweepPoint {
	out := make([]SweepPoint, 0, len(kellyFractions)*len(atrMultipliers))
	for _, k := range kellyFractions {
		for _, m := range atrMultipliers {
			out = append(out, SweepPoint{KellyFraction: k, ATRMultiplier: m})
		}
	}
	return out
}

// Sweep runs one independent simulator per point with at most workers in
// flight. Events and prices are shared read-only. Results come back in
// grid order; the first failing run cancels the rest.
func Sweep(ctx context.Context, base sim.Config, baseRisk risk.Config, points []SweepPoint, workers int,
	events []market.NewsEvent, prices *market.PriceStore, log zerolog.Logger) ([]SweepResult, error) {
	if workers <= 0 {
		workers = 1
	}
	log = log.With().Str("component", "sweep").Logger()

	results := make([]SweepResult, len(points))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, pt := range points {
		i, pt := i, pt
		g.Go(func() error {
			rc := baseRisk
			rc.KellyFraction = pt.KellyFraction
			rc.ATRMultiplier = pt.ATRMultiplier

			s, err := sim.New(base, rc, zerolog.Nop())
			if err != nil {
				return fmt.Errorf("%s: %w", pt, err)
			}
			res, err := s.Run(ctx, events, prices)
			if err != nil {
				return fmt.Errorf("%s: %w", pt, err)
			}
			results[i] = SweepResult{Point: pt, Result: res}
			log.Debug().Stringer("point", pt).Float64("pnl", res.TotalPnL).Msg("point done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Best returns the results ordered by total return, best first. Ties keep
// grid order.
func Best(results []SweepResult) []SweepResult {
	out := append([]SweepResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Result.TotalReturnPct > out[j].Result.TotalReturnPct
	})
	return out
}
