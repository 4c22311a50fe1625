package sim

import (
	"math"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// Sentiment is a scorer's reading of one event.
type Sentiment struct {
	Score       float64 // signed, -1..1
	Direction   int     // +1 bullish, -1 bearish, 0 neutral
	Strength    float64 // |Score|
	Probability float64 // base probability for the combiner
}

// Scorer turns an event into a sentiment reading. ok is false when the
// event cannot be scored.
type Scorer interface {
	Score(ev market.NewsEvent) (Sentiment, bool)
}

// FieldScorer reads the event's pre-computed sentiment score.
type FieldScorer struct{}

// Score maps a score s to direction sign(s), strength |s| and base
// probability 0.5 + |s|/2.
func (FieldScorer) Score(ev market.NewsEvent) (Sentiment, bool) {
	if ev.Sentiment == nil {
		return Sentiment{}, false
	}
	score := math.Max(-1, math.Min(1, *ev.Sentiment))

	s := Sentiment{Score: score, Strength: math.Abs(score)}
	switch {
	case score > 0:
		s.Direction = 1
	case score < 0:
		s.Direction = -1
	}
	s.Probability = 0.5 + s.Strength/2
	return s, true
}
