package risk

import (
	"math"
	"sort"
)

const (
	tradingDaysPerYear = 252
	maxProfitFactor    = 999.0
	minICTrades        = 3
)

// Stats summarises closed trades.
type Stats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	Sharpe       float64 `json:"sharpe"`

	// Spearman correlation of confidence with win/loss.
	InformationCoefficient float64 `json:"information_coefficient"`
	HasIC                  bool    `json:"has_ic"`
}

// Stats computes performance statistics over closed trades.
func (s *Sizer) Stats() Stats {
	return ComputeStats(s.closed)
}

// ComputeStats is Stats over an arbitrary trade list.
func ComputeStats(trades []TradeOutcome) Stats {
	st := Stats{Trades: len(trades)}
	if len(trades) == 0 {
		return st
	}

	grossWin, grossLoss := 0.0, 0.0
	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.PnL > 0 {
			st.Wins++
			grossWin += t.PnL
		} else {
			st.Losses++
			grossLoss += -t.PnL
		}
		returns = append(returns, t.ReturnPct)
	}

	st.WinRate = float64(st.Wins) / float64(st.Trades)
	if st.Wins > 0 {
		st.AvgWin = grossWin / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLoss = -grossLoss / float64(st.Losses)
	}
	switch {
	case grossLoss > 0:
		st.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		st.ProfitFactor = maxProfitFactor
	}

	st.Sharpe = sharpe(returns)

	if len(trades) >= minICTrades {
		conf := make([]float64, len(trades))
		outcome := make([]float64, len(trades))
		for i, t := range trades {
			conf[i] = t.Confidence
			if t.PnL > 0 {
				outcome[i] = 1
			}
		}
		if ic, ok := spearman(conf, outcome); ok {
			st.InformationCoefficient = ic
			st.HasIC = true
		}
	}
	return st
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// ranks assigns average ranks to ties.
func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// spearman is the Pearson correlation of the ranks. It is undefined when
// either side has no variance.
func spearman(x, y []float64) (float64, bool) {
	rx, ry := ranks(x), ranks(y)
	n := float64(len(rx))

	mx, my := 0.0, 0.0
	for i := range rx {
		mx += rx[i]
		my += ry[i]
	}
	mx /= n
	my /= n

	cov, vx, vy := 0.0, 0.0, 0.0
	for i := range rx {
		dx, dy := rx[i]-mx, ry[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}
