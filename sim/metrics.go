package sim

import (
	"sort"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
)

// ErrNoPricedArticles is reported in Result.Error when no event had prices.
const ErrNoPricedArticles = "no priced articles found"

// Result is the outcome of a run. Percentages are fractions.
type Result struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	OpenPositions  int     `json:"open_positions"`

	Events    []Event      `json:"events"`
	Positions []Position   `json:"positions"`
	Stats     risk.Stats   `json:"stats"`
	Risk      risk.Summary `json:"risk"`
	Error     string       `json:"error,omitempty"`
}

func (s *Simulator) result(finished bool) Result {
	r := Result{
		InitialCapital: s.cfg.InitialCapital,
		Events:         s.Events(),
		Stats:          s.sizer.Stats(),
		Risk:           s.manager.Summary(),
		OpenPositions:  len(s.book.active),
	}

	grossWin, grossLoss := 0.0, 0.0
	for _, p := range s.closed {
		r.Positions = append(r.Positions, *p)
		r.TotalPnL += p.PnL
		if p.PnL > 0 {
			r.WinningTrades++
			grossWin += p.PnL
		} else {
			r.LosingTrades++
			grossLoss += p.PnL
		}
	}
	if !finished {
		for _, p := range s.book.active {
			r.Positions = append(r.Positions, *p)
		}
	}

	r.TotalTrades = len(s.closed)
	r.FinalCapital = r.InitialCapital + r.TotalPnL
	r.TotalReturnPct = r.TotalPnL / r.InitialCapital
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
	if r.WinningTrades > 0 {
		r.AvgWin = grossWin / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}
	r.MaxDrawdownPct = MaxDrawdown(r.InitialCapital, s.closed)

	if s.priced == 0 {
		r.Error = ErrNoPricedArticles
	}
	return r
}

// MaxDrawdown walks the equity curve of realized P/L ordered by exit time
// and returns the deepest peak-to-trough decline.
func MaxDrawdown(initial float64, closed []*Position) float64 {
	ordered := append([]*Position(nil), closed...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	equity, peak, worst := initial, initial, 0.0
	for _, p := range ordered {
		equity += p.PnL
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
