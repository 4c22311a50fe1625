package indicators

import (
	"math"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(b market.Bar, prevClose float64) float64 {
	highLow := b.High - b.Low
	highClose := math.Abs(b.High - prevClose)
	lowClose := math.Abs(b.Low - prevClose)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR is the simple mean of the last period true ranges.
//
// It needs at least period bars; the oldest bar in the window uses the close
// before it when one exists and falls back to high-low otherwise. With too
// little history ATR returns 0, which callers treat as "skip sizing".
func ATR(bars []market.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	start := len(bars) - period
	sum := 0.0
	for i := start; i < len(bars); i++ {
		if i == 0 {
			sum += bars[i].High - bars[i].Low
			continue
		}
		sum += TrueRange(bars[i], bars[i-1].Close)
	}
	return sum / float64(period)
}
