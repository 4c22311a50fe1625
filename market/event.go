package market

import (
	"sort"
	"strings"
	"time"
)

// NewsEvent is one market-moving record supplied by the event collaborator
// (announcement feed, news scraper). Optional fields use pointers or zero
// values to mean "unknown".
type NewsEvent struct {
	Ticker    string
	Timestamp time.Time
	Title     string
	Body      string
	Source    string
	Category  string

	// PriceSensitive is the exchange's own materiality flag, nil when the
	// source does not publish one.
	PriceSensitive *bool

	// Sentiment is a pre-computed score in [-1, 1], nil when not scored.
	Sentiment *float64

	// DetectedAt is when the event reached us; zero means "at Timestamp".
	DetectedAt time.Time
}

// Text joins title and body for scoring.
func (e NewsEvent) Text() string {
	return strings.TrimSpace(e.Title + " " + e.Body)
}

// Age is how stale the event was when it was detected.
func (e NewsEvent) Age() time.Duration {
	if e.DetectedAt.IsZero() {
		return 0
	}
	return e.DetectedAt.Sub(e.Timestamp)
}

// SortEvents orders events by timestamp, keeping input order for ties.
func SortEvents(events []NewsEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
