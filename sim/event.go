package sim

import "time"

// EventKind classifies a simulation event.
type EventKind string

const (
	KindNews           EventKind = "NEWS"
	KindRecommendation EventKind = "RECOMMENDATION"
	KindEntry          EventKind = "ENTRY"
	KindExit           EventKind = "EXIT"
	KindFiltered       EventKind = "FILTERED"
	KindRejected       EventKind = "REJECTED"
	KindStopLoss       EventKind = "STOP_LOSS"
	KindCircuitBreaker EventKind = "CIRCUIT_BREAKER"
)

// Event is one append-only record of the run. Details serialise with
// sorted keys.
type Event struct {
	Seq         int            `json:"seq"`
	Time        time.Time      `json:"time"`
	Kind        EventKind      `json:"kind"`
	Ticker      string         `json:"ticker,omitempty"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

func (s *Simulator) emit(at time.Time, kind EventKind, ticker, desc string, details map[string]any) {
	s.events = append(s.events, Event{
		Seq:         len(s.events) + 1,
		Time:        at,
		Kind:        kind,
		Ticker:      ticker,
		Description: desc,
		Details:     details,
	})
}
