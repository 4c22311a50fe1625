package indicators

import "fmt"

// SMA calculates the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, notEnough(period, len(values))
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMA calculates the exponential moving average, seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// EMASeries returns the EMA at every index from period-1 onwards.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, notEnough(period, len(values))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out, nil
}
