package risk

// Direction is +1 for long and -1 for short.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}

// VolatilityStop places stops a multiple of ATR away from entry.
type VolatilityStop struct {
	Multiplier  float64
	RewardRatio float64
}

// Levels returns the stop-loss and take-profit prices.
func (v VolatilityStop) Levels(entry, atr float64, dir Direction) (stop, takeProfit float64) {
	dist := atr * v.Multiplier
	sign := float64(dir)
	stop = entry - sign*dist
	takeProfit = entry + sign*dist*v.RewardRatio
	return stop, takeProfit
}

// Size risks riskPct of account between entry and the volatility stop.
// Zero ATR or a non-positive risk per share yields zero shares.
func (v VolatilityStop) Size(entry, atr float64, dir Direction, account, riskPct float64) (shares int, stop, riskAmount float64) {
	if atr <= 0 || entry <= 0 {
		return 0, 0, 0
	}
	stop, _ = v.Levels(entry, atr, dir)

	riskPerShare := float64(dir) * (entry - stop)
	if riskPerShare <= 0 {
		return 0, stop, 0
	}

	shares = floorShares(account * riskPct / riskPerShare)
	if shares < 0 {
		shares = 0
	}
	return shares, stop, float64(shares) * riskPerShare
}
