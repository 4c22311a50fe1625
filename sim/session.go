package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// Session serialises batches of events into one long-lived simulator. A
// batch holds the lock until every position and risk mutation it causes
// has been applied.
type Session struct {
	mu    sync.Mutex
	sim   *Simulator
	last  time.Time
	count int

	// events already processed at last, keyed by eventKey
	atLast map[string]struct{}
}

// NewSession begins sim against prices.
func NewSession(sim *Simulator, prices *market.PriceStore) (*Session, error) {
	if err := sim.Begin(prices); err != nil {
		return nil, err
	}
	return &Session{sim: sim, atLast: map[string]struct{}{}}, nil
}

func eventKey(ev market.NewsEvent) string {
	return ev.Ticker + "|" + ev.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + ev.Title
}

// ProcessBatch sorts and processes one batch. Events older than the newest
// processed timestamp are skipped, as are exact repeats at that timestamp,
// so a re-delivered batch is harmless while distinct events sharing the
// boundary timestamp still run.
func (s *Session) ProcessBatch(ctx context.Context, events []market.NewsEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := append([]market.NewsEvent(nil), events...)
	market.SortEvents(batch)

	n := 0
	for _, ev := range batch {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		key := eventKey(ev)
		if !s.last.IsZero() {
			if ev.Timestamp.Before(s.last) {
				continue
			}
			if _, dup := s.atLast[key]; dup && ev.Timestamp.Equal(s.last) {
				continue
			}
		}
		if err := s.sim.Process(ev); err != nil {
			return n, fmt.Errorf("process %s: %w", ev.Ticker, err)
		}
		if ev.Timestamp.After(s.last) {
			s.last = ev.Timestamp
			clear(s.atLast)
		}
		s.atLast[key] = struct{}{}
		n++
	}
	s.count += n
	return n, nil
}

// LastEvent is the timestamp of the newest processed event.
func (s *Session) LastEvent() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Snapshot returns the running result with open positions included.
func (s *Session) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}

// ResetRisk clears a latched drawdown shutdown between batches.
func (s *Session) ResetRisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.ResetRisk()
}

// Close finishes the run.
func (s *Session) Close() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Finish()
}

// EventSource supplies events newer than since.
type EventSource interface {
	Fetch(ctx context.Context, since time.Time) ([]market.NewsEvent, error)
}

// Poller feeds a Session from an EventSource on a fixed interval. One poll
// completes before the next starts.
type Poller struct {
	Source   EventSource
	Session  *Session
	Interval time.Duration
	Log      zerolog.Logger
}

// Run polls immediately and then on every tick until ctx is done. Source
// errors are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	if p.Source == nil || p.Session == nil {
		return errors.New("poller: source and session are required")
	}
	if p.Interval <= 0 {
		return fmt.Errorf("poller: interval must be positive, got %s", p.Interval)
	}
	log := p.Log.With().Str("component", "poller").Logger()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		p.poll(ctx, log)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, log zerolog.Logger) {
	events, err := p.Source.Fetch(ctx, p.Session.LastEvent())
	if err != nil {
		log.Warn().Err(err).Msg("fetch failed")
		return
	}
	n, err := p.Session.ProcessBatch(ctx, events)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("batch failed")
		return
	}
	if n > 0 {
		log.Info().Int("events", n).Msg("processed batch")
	}
}
