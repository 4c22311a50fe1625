package indicators

import "fmt"

// RSI is the relative strength index over the last period changes, using
// simple averages of gains and losses.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, notEnough(period+1, len(closes))
	}

	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50, nil
		}
		return 100, nil
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs), nil
}

// MACDResult holds the latest MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// Bullish reports whether the MACD line sits above its signal line.
func (m MACDResult) Bullish() bool { return m.MACD > m.Signal }

// MACD computes fast EMA minus slow EMA and its signal EMA.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return MACDResult{}, fmt.Errorf("invalid MACD periods %d/%d/%d", fast, slow, signal)
	}
	if len(closes) < slow+signal-1 {
		return MACDResult{}, notEnough(slow+signal-1, len(closes))
	}

	fastSeries, err := EMASeries(closes, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowSeries, err := EMASeries(closes, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// align: slowSeries[k] is at index slow-1+k, fastSeries at fast-1+k
	offset := slow - fast
	line := make([]float64, len(slowSeries))
	for k := range slowSeries {
		line[k] = fastSeries[k+offset] - slowSeries[k]
	}

	sig, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, err
	}
	last := line[len(line)-1]
	return MACDResult{MACD: last, Signal: sig, Histogram: last - sig}, nil
}
