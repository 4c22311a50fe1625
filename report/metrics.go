package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// Metrics is a per-run Prometheus registry. It is written to a textfile for
// the node exporter rather than served, since a run is a batch job.
type Metrics struct {
	reg *prometheus.Registry

	finalCapital prometheus.Gauge
	totalReturn  prometheus.Gauge
	maxDrawdown  prometheus.Gauge
	winRate      prometheus.Gauge
	openPos      prometheus.Gauge

	trades     *prometheus.CounterVec
	exits      *prometheus.CounterVec
	events     *prometheus.CounterVec
	pnl        prometheus.Histogram
	confidence prometheus.Histogram
}

// NewMetrics builds the collectors under namespace, e.g. "ares".
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		finalCapital: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_capital",
			Help:      "Account value at the end of the run",
		}),
		totalReturn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_return_ratio",
			Help:      "Total return as a fraction of initial capital",
		}),
		maxDrawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_drawdown_ratio",
			Help:      "Largest peak to trough decline of closed-trade equity",
		}),
		winRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "win_rate_ratio",
			Help:      "Fraction of closed trades with positive P/L",
		}),
		openPos: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Positions still open when the result was taken",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Closed trades by outcome",
		}, []string{"outcome"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Closed trades by exit reason",
		}, []string{"reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Simulation events by kind",
		}, []string{"kind"}),
		pnl: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_pnl",
			Help:      "Realized P/L per closed trade",
			Buckets:   []float64{-5000, -1000, -500, -100, 0, 100, 500, 1000, 5000},
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entry_confidence",
			Help:      "Combined confidence of opened positions",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
	}

	m.reg.MustRegister(
		m.finalCapital, m.totalReturn, m.maxDrawdown, m.winRate, m.openPos,
		m.trades, m.exits, m.events, m.pnl, m.confidence,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe adds one run result to the collectors.
func (m *Metrics) Observe(res sim.Result) {
	m.finalCapital.Set(res.FinalCapital)
	m.totalReturn.Set(res.TotalReturnPct)
	m.maxDrawdown.Set(res.MaxDrawdownPct)
	m.winRate.Set(res.WinRate)
	m.openPos.Set(float64(res.OpenPositions))

	for _, p := range res.Positions {
		m.confidence.Observe(p.Confidence)
		if p.Open {
			continue
		}
		outcome := "loss"
		if p.PnL > 0 {
			outcome = "win"
		}
		m.trades.WithLabelValues(outcome).Inc()
		m.exits.WithLabelValues(p.ExitReason).Inc()
		m.pnl.Observe(p.PnL)
	}
	for _, ev := range res.Events {
		m.events.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// WriteTextfile writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
