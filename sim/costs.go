package sim

import "github.com/rudirid/ares-master-control-program-sub000/risk"

// fillPrice worsens price by the slippage in the trade's disfavour.
func (s *Simulator) fillPrice(price float64, dir risk.Direction, opening bool) float64 {
	buying := (dir == risk.Long) == opening
	if buying {
		return price * (1 + s.cfg.SlippagePct)
	}
	return price * (1 - s.cfg.SlippagePct)
}

// commission is charged on notional at both entry and exit.
func (s *Simulator) commission(price float64, shares int) float64 {
	return price * float64(shares) * s.cfg.CommissionPct
}
