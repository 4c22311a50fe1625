// Package indicators provides technical analysis indicators over daily bars.
//
// Every function is a pure function of the bars it is given. Callers are
// responsible for passing only bars dated at or before the decision time.
package indicators

import (
	"errors"
	"fmt"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// ErrNotEnoughData is returned when the input is shorter than the warmup an
// indicator needs.
var ErrNotEnoughData = errors.New("not enough data")

func notEnough(need, got int) error {
	return fmt.Errorf("%w: need %d, got %d", ErrNotEnoughData, need, got)
}

// Closes extracts closing prices, oldest first.
func Closes(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
