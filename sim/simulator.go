// Package sim replays news events against daily prices without lookahead,
// running each event through a filter cascade, the signal combiner and the
// risk engine.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudirid/ares-master-control-program-sub000/indicators"
	"github.com/rudirid/ares-master-control-program-sub000/market"
	"github.com/rudirid/ares-master-control-program-sub000/pkg/id"
	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/signals"
)

// ErrNotStarted is returned by Process before Begin.
var ErrNotStarted = errors.New("simulation not started")

const (
	historyBars = 60

	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	trendFast  = 10
	trendSlow  = 30
	trendBand  = 0.01
)

// Filter stages, in cascade order.
const (
	StageDataQuality = "data_quality"
	StageFreshness   = "freshness"
	StageMateriality = "materiality"
	StageTimeOfDay   = "time_of_day"
	StageSentiment   = "sentiment_direction"
	StageTechnical   = "technical_confirmation"
	StageEntryPrice  = "entry_price"
)

// Option customises a Simulator.
type Option func(*Simulator)

// WithScorer replaces the default FieldScorer.
func WithScorer(sc Scorer) Option { return func(s *Simulator) { s.scorer = sc } }

// WithRiskSink forwards risk manager events, e.g. to a journal.
func WithRiskSink(sink risk.RiskEventSink) Option { return func(s *Simulator) { s.sink = sink } }

// WithSession replaces the ASX trading session used for time-of-day.
func WithSession(sess signals.Session) Option { return func(s *Simulator) { s.session = sess } }

// Simulator owns the positions and event log of one run.
type Simulator struct {
	cfg     Config
	riskCfg risk.Config
	base    zerolog.Logger
	log     zerolog.Logger
	loc     *time.Location
	scorer  Scorer
	session signals.Session
	stops   risk.VolatilityStop
	sink    risk.RiskEventSink

	prices        *market.PriceStore
	sizer         *risk.Sizer
	manager       *risk.Manager
	ids           *id.Generator
	book          *book
	closed        []*Position
	events        []Event
	now           time.Time // simulated wall time in loc
	today         time.Time // date key of now, UTC midnight
	priced        int
	breakerActive bool
	started       bool
}

// New validates both configs.
func New(cfg Config, riskCfg risk.Config, log zerolog.Logger, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := riskCfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()

	s := &Simulator{
		cfg:     cfg,
		riskCfg: riskCfg,
		base:    log,
		log:     log.With().Str("component", "sim").Logger(),
		loc:     loc,
		scorer:  FieldScorer{},
		session: signals.ASXSession(),
		stops:   risk.VolatilityStop{Multiplier: riskCfg.ATRMultiplier, RewardRatio: riskCfg.RewardRatio},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dateKey is the calendar day of t as UTC midnight, matching how daily
// bars are keyed.
func dateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Begin resets all run state against a price store.
func (s *Simulator) Begin(prices *market.PriceStore) error {
	if prices == nil {
		prices = market.NewPriceStore()
	}
	sizer, err := risk.NewSizer(s.riskCfg, s.cfg.InitialCapital, s.base)
	if err != nil {
		return fmt.Errorf("sizer: %w", err)
	}

	s.prices = prices
	s.sizer = sizer
	s.book = newBook()
	s.closed = nil
	s.events = nil
	s.now = time.Time{}
	s.today = time.Time{}
	s.priced = 0
	s.breakerActive = false
	s.ids = id.NewGenerator(s.cfg.Seed)

	manager, err := risk.NewManager(s.riskCfg, s.cfg.InitialCapital, s.book, s.base)
	if err != nil {
		return fmt.Errorf("risk manager: %w", err)
	}
	manager.SetClock(func() time.Time { return s.now })
	if s.sink != nil {
		manager.SetSink(s.sink)
	}
	s.manager = manager
	s.started = true

	s.log.Info().
		Int("tickers", len(prices.Tickers())).
		Float64("capital", s.cfg.InitialCapital).
		Msg("simulation started")
	return nil
}

// Run replays events in timestamp order and closes out the run.
func (s *Simulator) Run(ctx context.Context, events []market.NewsEvent, prices *market.PriceStore) (Result, error) {
	if err := s.Begin(prices); err != nil {
		return Result{}, err
	}

	sorted := append([]market.NewsEvent(nil), events...)
	market.SortEvents(sorted)

	for _, ev := range sorted {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := s.Process(ev); err != nil {
			return Result{}, err
		}
	}
	return s.Finish(), nil
}

// Process handles one event: advance the clock, check open positions, then
// evaluate the event for entry.
func (s *Simulator) Process(ev market.NewsEvent) error {
	if !s.started {
		return ErrNotStarted
	}
	local := ev.Timestamp.In(s.loc)

	s.advance(local)
	s.checkPositions(s.today)
	s.enforceShutdown()
	s.evaluate(ev, local)
	return nil
}

// advance moves the clock forward; late events never move it back.
func (s *Simulator) advance(local time.Time) {
	if local.After(s.now) {
		s.now = local
	}
	day := dateKey(s.now)
	if day.Equal(s.today) {
		return
	}
	s.today = day
	s.sizer.StartDay()
	s.manager.StartDay(s.now)
	s.syncBreaker()
}

func (s *Simulator) syncBreaker() {
	st := s.manager.Breaker()
	if st.Active == s.breakerActive {
		return
	}
	s.breakerActive = st.Active

	desc := "circuit breaker deactivated"
	if st.Active {
		desc = "circuit breaker activated: " + st.Reason
	}
	s.emit(s.now, KindCircuitBreaker, "", desc, map[string]any{
		"active":         st.Active,
		"daily_loss_pct": st.DailyLossPct,
		"deactivate_at":  st.DeactivateAt,
	})
}

// checkPositions walks each open position over the bars after its last
// check, up to and including upto.
func (s *Simulator) checkPositions(upto time.Time) {
	for _, p := range s.book.snapshot() {
		for _, b := range s.prices.Between(p.Ticker, p.lastChecked, upto) {
			p.lastChecked = b.Date
			if s.checkBar(p, b) {
				break
			}
		}
	}
}

func (s *Simulator) checkBar(p *Position, b market.Bar) bool {
	r := barRange{open: b.Open, high: b.High, low: b.Low, close: b.Close}

	// a bar touching both levels is assumed to hit the stop first
	if p.hitStopLoss(r) {
		s.emit(b.Date, KindStopLoss, p.Ticker, fmt.Sprintf("stop %.4f hit", p.StopLoss), map[string]any{
			"position_id": p.ID,
			"stop":        p.StopLoss,
			"low":         b.Low,
			"high":        b.High,
		})
		s.closePosition(p, b.Date, p.triggerPrice(p.StopLoss, r, true), ReasonStopLoss)
		return true
	}
	if p.hitTakeProfit(r) {
		s.closePosition(p, b.Date, p.triggerPrice(p.TakeProfit, r, false), ReasonTakeProfit)
		return true
	}
	if hit, reason := s.manager.CheckStopLoss(p.ID, b.Close); hit {
		s.emit(b.Date, KindStopLoss, p.Ticker, reason, map[string]any{
			"position_id": p.ID,
			"close":       b.Close,
		})
		s.closePosition(p, b.Date, b.Close, ReasonRiskStop)
		return true
	}
	if !b.Date.Before(p.EntryTime.AddDate(0, 0, s.cfg.HoldingPeriodDays)) {
		s.closePosition(p, b.Date, b.Close, ReasonHoldingPeriod)
		return true
	}
	return false
}

func (s *Simulator) closePosition(p *Position, at time.Time, price float64, reason string) {
	fill := s.fillPrice(price, p.Direction, false)
	p.Commission += s.commission(fill, p.Shares)

	gross := float64(p.Direction) * (fill - p.EntryPrice) * float64(p.Shares)
	p.PnL = gross - p.Commission
	if notional := p.EntryPrice * float64(p.Shares); notional > 0 {
		p.ReturnPct = p.PnL / notional
	}
	p.ExitTime = at
	p.ExitPrice = fill
	p.ExitReason = reason
	p.HoldingDays = int(at.Sub(p.EntryTime).Hours() / 24)
	p.Open = false

	s.book.remove(p)
	s.closed = append(s.closed, p)

	s.sizer.ClosePosition(risk.TradeOutcome{
		Ticker:     p.Ticker,
		PnL:        p.PnL,
		ReturnPct:  p.ReturnPct,
		Confidence: p.Confidence,
	})
	s.manager.RecordRealized(p.PnL, s.now)

	s.emit(at, KindExit, p.Ticker, reason, map[string]any{
		"position_id": p.ID,
		"exit_price":  fill,
		"pnl":         p.PnL,
		"return_pct":  p.ReturnPct,
		"shares":      p.Shares,
	})
	s.log.Debug().
		Str("ticker", p.Ticker).
		Str("reason", reason).
		Float64("pnl", p.PnL).
		Msg("position closed")

	s.syncBreaker()
}

// enforceShutdown closes every position the day's bars can price when the
// sizer reports SHUTDOWN.
func (s *Simulator) enforceShutdown() {
	if len(s.book.active) == 0 || !s.sizer.Status().CloseAll {
		return
	}
	s.log.Warn().Int("open", len(s.book.active)).Msg("risk shutdown: closing positions")

	for _, p := range s.book.snapshot() {
		bar, ok := s.prices.LastOnOrBefore(p.Ticker, s.today)
		if !ok || bar.Date.Before(p.EntryTime) {
			continue
		}
		s.closePosition(p, bar.Date, bar.Close, ReasonShutdown)
	}
}

func (s *Simulator) filter(at time.Time, ticker, stage, reason string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["stage"] = stage
	s.emit(at, KindFiltered, ticker, reason, details)
	s.log.Debug().Str("ticker", ticker).Str("stage", stage).Msg(reason)
}

func (s *Simulator) reject(at time.Time, ticker, reason string, details map[string]any) {
	s.emit(at, KindRejected, ticker, reason, details)
	s.log.Debug().Str("ticker", ticker).Msg(reason)
}

// evaluate runs the filter cascade, the combiner and the risk gates, and
// opens a position when everything passes.
func (s *Simulator) evaluate(ev market.NewsEvent, local time.Time) {
	ticker := ev.Ticker
	evDay := dateKey(local)

	s.emit(local, KindNews, ticker, ev.Title, map[string]any{
		"source":   ev.Source,
		"category": ev.Category,
	})

	if s.prices.Has(ticker) {
		s.priced++
	}
	if reason := s.dataQuality(ev); reason != "" {
		s.filter(local, ticker, StageDataQuality, reason, nil)
		return
	}

	fresh := signals.Unavailable(signals.FactorFreshness, "no detection time")
	if !ev.DetectedAt.IsZero() {
		age := ev.Age()
		fresh = signals.Freshness(age)
		if s.cfg.MaxEventAgeMinutes > 0 && age > time.Duration(s.cfg.MaxEventAgeMinutes)*time.Minute {
			s.filter(local, ticker, StageFreshness, "stale event", map[string]any{"age_minutes": age.Minutes()})
			return
		}
	}

	mat := signals.MaterialityUnknown()
	if ev.PriceSensitive != nil {
		mat = signals.Materiality(*ev.PriceSensitive)
		if s.cfg.RequireMaterial && !*ev.PriceSensitive {
			s.filter(local, ticker, StageMateriality, "not price sensitive", nil)
			return
		}
	}

	tod := signals.TimeOfDay(local, s.session)
	if s.cfg.TradingHoursOnly && tod.Value < 1 {
		s.filter(local, ticker, StageTimeOfDay, "outside trading hours", map[string]any{"note": tod.Note})
		return
	}

	sent, ok := s.scorer.Score(ev)
	if !ok {
		s.filter(local, ticker, StageSentiment, "no sentiment", nil)
		return
	}
	if sent.Direction == 0 {
		s.filter(local, ticker, StageSentiment, "neutral sentiment", nil)
		return
	}
	if sent.Strength < s.cfg.MinSentimentStrength {
		s.filter(local, ticker, StageSentiment, "weak sentiment", map[string]any{"strength": sent.Strength})
		return
	}
	dir := risk.Long
	if sent.Direction < 0 {
		if !s.cfg.AllowShort {
			s.filter(local, ticker, StageSentiment, "bearish sentiment, shorting disabled", map[string]any{"score": sent.Score})
			return
		}
		dir = risk.Short
	}

	history := s.prices.Window(ticker, evDay, historyBars)
	tech := signals.Technical(technicalSnapshot(history))
	if dir == risk.Short {
		tech = signals.Mirror(tech)
	}
	if !tech.IsNeutral() && tech.Value < s.cfg.MinTechnicalFactor {
		s.filter(local, ticker, StageTechnical, "technicals disagree", map[string]any{"technical": tech.Value, "note": tech.Note})
		return
	}

	con := signals.Contrarian(sent.Score, recentMove(history, s.cfg.ContrarianLookbackDays), s.cfg.ContrarianThreshold)
	confidence, breakdown := signals.Combine(sent.Probability, fresh, tod, tech, mat, con)

	rec := breakdown.Map()
	rec["direction"] = dir.String()
	rec["sentiment"] = sent.Score
	s.emit(local, KindRecommendation, ticker, fmt.Sprintf("%s confidence %.3f", dir, confidence), rec)

	status := s.sizer.Status()
	if !status.Permits(confidence) {
		s.reject(local, ticker, "risk status "+status.Level.String(), map[string]any{
			"level":      status.Level.String(),
			"confidence": confidence,
			"reasons":    status.Reasons,
		})
		return
	}

	if s.book.has(ticker) {
		s.reject(local, ticker, "position already open", nil)
		return
	}

	ref, ok := s.prices.LastOnOrBefore(ticker, evDay)
	if !ok {
		s.filter(local, ticker, StageEntryPrice, "no price on or before event", nil)
		return
	}

	decision := s.manager.Validate(ticker, confidence, ref.Close)
	s.syncBreaker()
	if !decision.Allowed {
		codes := make([]string, len(decision.Violations))
		for i, v := range decision.Violations {
			codes[i] = v.Code
		}
		s.reject(local, ticker, strings.Join(decision.Reasons(), "; "), map[string]any{"violations": codes})
		return
	}

	bar, ok := s.prices.FirstOnOrAfter(ticker, evDay.AddDate(0, 0, 1))
	if !ok {
		s.filter(local, ticker, StageEntryPrice, "no price after event", nil)
		return
	}

	s.open(ev, local, bar, dir, confidence, sent, history, status, decision)
}

func (s *Simulator) open(ev market.NewsEvent, local time.Time, bar market.Bar, dir risk.Direction,
	confidence float64, sent Sentiment, history []market.Bar, status risk.RiskStatus, decision risk.Decision) {
	fill := s.fillPrice(bar.Open, dir, true)

	var stop, takeProfit float64
	stopSource := "atr"
	if atr := indicators.ATR(history, s.riskCfg.ATRPeriod); atr > 0 {
		stop, takeProfit = s.stops.Levels(fill, atr, dir)
	} else {
		stopSource = "fixed"
		sign := float64(dir)
		stop = fill * (1 - sign*s.riskCfg.StopLossPct)
		takeProfit = fill * (1 + sign*s.riskCfg.StopLossPct*s.riskCfg.RewardRatio)
	}

	sized := s.sizer.Size(ev.Ticker, fill, stop, confidence)
	shares := int(math.Floor(float64(sized.Shares) * status.PositionScale))
	if decision.Shares < shares {
		shares = decision.Shares
	}
	if shares <= 0 {
		sized.Details["gate_shares"] = decision.Shares
		s.reject(local, ev.Ticker, "zero position size", sized.Details)
		return
	}

	riskAmount := float64(shares) * math.Abs(fill-stop)
	p := &Position{
		ID:            s.ids.At(bar.Date),
		Ticker:        ev.Ticker,
		Direction:     dir,
		EventTime:     local,
		EntryTime:     bar.Date,
		EntryPrice:    fill,
		Shares:        shares,
		PositionValue: fill * float64(shares),
		StopLoss:      stop,
		TakeProfit:    takeProfit,
		RiskAmount:    riskAmount,
		Confidence:    confidence,
		Sentiment:     sent.Score,
		Commission:    s.commission(fill, shares),
		Open:          true,
		// the entry bar's own range is checked for exits
		lastChecked: bar.Date.AddDate(0, 0, -1),
	}
	for _, theme := range []string{ev.Category, ev.Source} {
		if theme != "" {
			p.Themes = append(p.Themes, theme)
		}
	}

	if !s.book.open(p) {
		s.reject(local, ev.Ticker, "position already open", nil)
		return
	}
	s.sizer.OpenPosition(ev.Ticker, riskAmount)

	s.emit(bar.Date, KindEntry, ev.Ticker, fmt.Sprintf("%s %d @ %.4f", dir, shares, fill), map[string]any{
		"position_id": p.ID,
		"direction":   dir.String(),
		"shares":      shares,
		"entry_price": fill,
		"stop_loss":   stop,
		"take_profit": takeProfit,
		"stop_source": stopSource,
		"risk_amount": riskAmount,
		"kelly_share": sized.Shares,
		"gate_shares": decision.Shares,
		"confidence":  confidence,
	})
	s.log.Info().
		Str("ticker", ev.Ticker).
		Str("direction", dir.String()).
		Int("shares", shares).
		Float64("price", fill).
		Float64("confidence", confidence).
		Msg("position opened")
}

func (s *Simulator) dataQuality(ev market.NewsEvent) string {
	switch {
	case strings.TrimSpace(ev.Ticker) == "":
		return "missing ticker"
	case ev.Timestamp.IsZero():
		return "missing timestamp"
	case strings.TrimSpace(ev.Text()) == "":
		return "empty title and body"
	case !s.prices.Has(ev.Ticker):
		return "no price history"
	}
	return ""
}

func technicalSnapshot(history []market.Bar) signals.TechnicalSnapshot {
	var snap signals.TechnicalSnapshot
	closes := indicators.Closes(history)

	if rsi, err := indicators.RSI(closes, rsiPeriod); err == nil {
		snap.HasRSI = true
		snap.RSI = rsi
	}
	if m, err := indicators.MACD(closes, macdFast, macdSlow, macdSignal); err == nil {
		snap.HasMACD = true
		snap.MACDBullish = m.Bullish()
	}

	fast, errFast := indicators.SMA(closes, trendFast)
	slow, errSlow := indicators.SMA(closes, trendSlow)
	if errFast == nil && errSlow == nil && slow > 0 {
		switch ratio := fast / slow; {
		case ratio > 1+trendBand:
			snap.Trend = signals.TrendUp
		case ratio < 1-trendBand:
			snap.Trend = signals.TrendDown
		default:
			snap.Trend = signals.TrendNone
		}
	}
	return snap
}

// recentMove is the fractional close-to-close change over the last n bars.
func recentMove(history []market.Bar, n int) float64 {
	if n <= 0 || len(history) < n+1 {
		return 0
	}
	from := history[len(history)-1-n].Close
	if from <= 0 {
		return 0
	}
	return history[len(history)-1].Close/from - 1
}

// Finish walks open positions to the end of their price data, force-closes
// whatever is left, and returns the result.
func (s *Simulator) Finish() Result {
	if !s.started {
		return Result{Error: ErrNotStarted.Error()}
	}

	for _, p := range s.book.snapshot() {
		last, ok := s.prices.Last(p.Ticker)
		if !ok {
			continue
		}
		closed := false
		for _, b := range s.prices.Between(p.Ticker, p.lastChecked, last.Date) {
			p.lastChecked = b.Date
			if s.checkBar(p, b) {
				closed = true
				break
			}
		}
		if !closed {
			s.closePosition(p, last.Date, last.Close, ReasonEndOfSim)
		}
	}

	res := s.result(true)
	s.log.Info().
		Int("trades", res.TotalTrades).
		Float64("pnl", res.TotalPnL).
		Float64("max_drawdown", res.MaxDrawdownPct).
		Msg("simulation finished")
	s.started = false
	return res
}

// Snapshot is the result so far without closing anything.
func (s *Simulator) Snapshot() Result {
	if s.book == nil {
		return Result{InitialCapital: s.cfg.InitialCapital, FinalCapital: s.cfg.InitialCapital}
	}
	return s.result(false)
}

// ResetRisk is the manual reset after a drawdown shutdown: the sizer's peak
// and day start move to the current balance so entries can resume.
func (s *Simulator) ResetRisk() error {
	if !s.started {
		return ErrNotStarted
	}
	before := s.sizer.Status()
	s.sizer.ResetDrawdown()
	s.manager.RecordDrawdownReset(before.Level, before.MaxDrawdown, s.sizer.AccountSize())
	return nil
}

// Events returns a copy of the event log.
func (s *Simulator) Events() []Event { return append([]Event(nil), s.events...) }

// OpenPositions returns the active positions in open order.
func (s *Simulator) OpenPositions() []Position {
	if s.book == nil {
		return nil
	}
	out := make([]Position, len(s.book.active))
	for i, p := range s.book.active {
		out[i] = *p
	}
	return out
}

// RiskSummary exposes the risk manager's snapshot.
func (s *Simulator) RiskSummary() risk.Summary {
	if s.manager == nil {
		return risk.Summary{}
	}
	return s.manager.Summary()
}
