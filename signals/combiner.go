// Package signals fuses independent evidence into one bounded confidence
// score by multiplying odds.
package signals

import (
	"fmt"
	"strings"
)

const (
	maxOdds = 999.0
	minOdds = 0.001

	// MinConfidence and MaxConfidence bound every combined score.
	MinConfidence = 0.01
	MaxConfidence = 0.99
)

// ProbToOdds converts a probability to odds, clamping the extremes.
func ProbToOdds(p float64) float64 {
	if p >= 1 {
		return maxOdds
	}
	if p <= 0 {
		return minOdds
	}
	return p / (1 - p)
}

// OddsToProb converts odds back to a probability.
func OddsToProb(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	return odds / (1 + odds)
}

// Source records whether a factor was computed from data or defaulted.
type Source int

const (
	Computed Source = iota
	Neutral
)

func (s Source) String() string {
	if s == Neutral {
		return "neutral"
	}
	return "computed"
}

// Factor is a likelihood ratio applied to the odds.
type Factor struct {
	Name   string
	Value  float64
	Source Source
	Note   string
}

// IsNeutral reports whether the factor is a fail-open default.
func (f Factor) IsNeutral() bool { return f.Source == Neutral }

func computed(name string, v float64, note string) Factor {
	return Factor{Name: name, Value: v, Source: Computed, Note: note}
}

func neutral(name, note string) Factor {
	return Factor{Name: name, Value: 1.0, Source: Neutral, Note: note}
}

// Unavailable is the fail-open factor for a signal with no input.
func Unavailable(name, note string) Factor { return neutral(name, note) }

// Mirror reflects a factor around 1.0 for bearish trades, so evidence that
// supports a long counts against a short.
func Mirror(f Factor) Factor {
	if f.IsNeutral() {
		return f
	}
	f.Value = 2 - f.Value
	f.Note = "mirrored " + f.Note
	return f
}

// Breakdown is the audit trail of one Combine call.
type Breakdown struct {
	BaseProbability float64
	BaseOdds        float64
	Factors         []Factor
	CombinedOdds    float64
	RawConfidence   float64
	Confidence      float64
}

// Map flattens the breakdown for event details and journals.
func (b Breakdown) Map() map[string]any {
	m := map[string]any{
		"base_probability": b.BaseProbability,
		"base_odds":        b.BaseOdds,
		"combined_odds":    b.CombinedOdds,
		"raw_confidence":   b.RawConfidence,
		"confidence":       b.Confidence,
	}
	for _, f := range b.Factors {
		m["factor_"+f.Name] = f.Value
		if f.IsNeutral() {
			m["factor_"+f.Name+"_neutral"] = true
		}
	}
	return m
}

func (b Breakdown) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "base=%.3f (odds %.3f)", b.BaseProbability, b.BaseOdds)
	for _, f := range b.Factors {
		fmt.Fprintf(&sb, " x %s=%.4f", f.Name, f.Value)
		if f.IsNeutral() {
			sb.WriteString("(n)")
		}
	}
	fmt.Fprintf(&sb, " => odds %.3f, confidence %.3f", b.CombinedOdds, b.Confidence)
	return sb.String()
}

// Combine multiplies the base odds by every factor and converts back to a
// confidence clipped to [MinConfidence, MaxConfidence].
func Combine(base float64, factors ...Factor) (float64, Breakdown) {
	b := Breakdown{
		BaseProbability: base,
		BaseOdds:        ProbToOdds(base),
		Factors:         append([]Factor(nil), factors...),
	}

	odds := b.BaseOdds
	for _, f := range factors {
		odds *= f.Value
	}
	b.CombinedOdds = odds
	b.RawConfidence = OddsToProb(odds)
	b.Confidence = clip(b.RawConfidence, MinConfidence, MaxConfidence)

	return b.Confidence, b
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
