package signals

import (
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
)

// Factor names used in breakdowns.
const (
	FactorFreshness   = "freshness"
	FactorTimeOfDay   = "time_of_day"
	FactorTechnical   = "technical"
	FactorMateriality = "materiality"
	FactorContrarian  = "contrarian"
)

// Freshness boosts recent events and fades stale ones.
func Freshness(age time.Duration) Factor {
	if age < 0 {
		return neutral(FactorFreshness, fmt.Sprintf("negative age %s", age))
	}
	note := age.Round(time.Second).String()
	switch {
	case age <= 5*time.Minute:
		return computed(FactorFreshness, 1.25, note)
	case age <= 15*time.Minute:
		return computed(FactorFreshness, 1.15, note)
	case age <= 30*time.Minute:
		return computed(FactorFreshness, 1.05, note)
	case age <= 60*time.Minute:
		return computed(FactorFreshness, 0.95, note)
	default:
		return computed(FactorFreshness, 0.80, note)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts RFC3339 and the common "2006-01-02 15:04:05" form.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FreshnessFromStrings parses both timestamps and falls back to a neutral
// factor when either is malformed.
func FreshnessFromStrings(eventTS, detectedTS string, log zerolog.Logger) Factor {
	ev, err := ParseTimestamp(eventTS)
	if err != nil {
		log.Warn().Err(err).Msg("freshness: bad event timestamp")
		return neutral(FactorFreshness, "bad event timestamp")
	}
	det, err := ParseTimestamp(detectedTS)
	if err != nil {
		log.Warn().Err(err).Msg("freshness: bad detection timestamp")
		return neutral(FactorFreshness, "bad detection timestamp")
	}
	return Freshness(det.Sub(ev))
}

// Session describes an exchange's regular trading hours.
type Session struct {
	Location *time.Location
	Open     time.Duration // offset from local midnight
	Close    time.Duration
	Edge     time.Duration // length of the opening and closing windows
}

// ASXSession is 10:00-16:00 Sydney time with one-hour edge windows.
func ASXSession() Session {
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		loc = time.UTC
	}
	return Session{
		Location: loc,
		Open:     10 * time.Hour,
		Close:    16 * time.Hour,
		Edge:     time.Hour,
	}
}

func (s Session) factorAt(clock time.Duration, note string) Factor {
	switch {
	case clock < s.Open || clock >= s.Close:
		return computed(FactorTimeOfDay, 0.90, note+" off-hours")
	case clock < s.Open+s.Edge || clock >= s.Close-s.Edge:
		return computed(FactorTimeOfDay, 1.00, note+" edge")
	default:
		return computed(FactorTimeOfDay, 1.08, note+" peak")
	}
}

// TimeOfDay rates liquidity at t in the session's local time.
func TimeOfDay(t time.Time, s Session) Factor {
	if t.IsZero() {
		return neutral(FactorTimeOfDay, "no timestamp")
	}
	if s.Location != nil {
		t = t.In(s.Location)
	}
	note := t.Format("Mon 15:04")
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return computed(FactorTimeOfDay, 0.90, note+" weekend")
	}
	clock := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return s.factorAt(clock, note)
}

// TimeOfDayFromClock rates a bare "HH:MM" local clock reading.
func TimeOfDayFromClock(hhmm string, s Session, log zerolog.Logger) Factor {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		log.Warn().Str("clock", hhmm).Msg("time of day: unparseable clock")
		return neutral(FactorTimeOfDay, "bad clock "+hhmm)
	}
	clock := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return s.factorAt(clock, hhmm)
}

// Trend is the direction of a moving-average comparison.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendNone
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendNone:
		return "none"
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "unknown"
	}
}

// TechnicalSnapshot holds whatever indicators were computable at decision time.
type TechnicalSnapshot struct {
	HasRSI bool
	RSI    float64

	HasMACD     bool
	MACDBullish bool

	Trend Trend
}

// Empty reports whether no indicator is available.
func (s TechnicalSnapshot) Empty() bool {
	return !s.HasRSI && !s.HasMACD && s.Trend == TrendUnknown
}

const (
	technicalFloor   = 0.85
	technicalCeiling = 1.15
)

// Technical averages the per-indicator factors.
func Technical(s TechnicalSnapshot) Factor {
	if s.Empty() {
		return neutral(FactorTechnical, "no technical data")
	}

	var parts []float64
	var notes []string
	if s.HasRSI {
		v := 1.0
		switch {
		case s.RSI < 30:
			v = 1.10
		case s.RSI > 70:
			v = 0.90
		}
		parts = append(parts, v)
		notes = append(notes, fmt.Sprintf("rsi=%.1f", s.RSI))
	}
	if s.HasMACD {
		v := 0.95
		if s.MACDBullish {
			v = 1.05
		}
		parts = append(parts, v)
		notes = append(notes, fmt.Sprintf("macd_bullish=%t", s.MACDBullish))
	}
	if s.Trend != TrendUnknown {
		v := 1.0
		switch s.Trend {
		case TrendUp:
			v = 1.05
		case TrendDown:
			v = 0.95
		}
		parts = append(parts, v)
		notes = append(notes, "trend="+s.Trend.String())
	}

	sum := 0.0
	for _, v := range parts {
		sum += clip(v, technicalFloor, technicalCeiling)
	}
	return computed(FactorTechnical, sum/float64(len(parts)), strings.Join(notes, " "))
}

// Materiality rewards price-sensitive announcements.
func Materiality(material bool) Factor {
	if material {
		return computed(FactorMateriality, 1.20, "material")
	}
	return computed(FactorMateriality, 0.95, "immaterial")
}

// MaterialityUnknown is used when the source did not flag price sensitivity.
func MaterialityUnknown() Factor {
	return neutral(FactorMateriality, "unflagged")
}

const contrarianMove = 0.10

// Contrarian fades extreme sentiment. sentiment is signed in [-1, 1] and
// recentMove is the fractional price change over the lookback.
func Contrarian(sentiment, recentMove, threshold float64) Factor {
	if math.Abs(sentiment) <= threshold {
		return computed(FactorContrarian, 1.0, "not extreme")
	}
	sameDirection := sentiment*recentMove > 0
	if sameDirection && math.Abs(recentMove) > contrarianMove {
		return computed(FactorContrarian, 0.80, fmt.Sprintf("extreme, moved %.1f%%", recentMove*100))
	}
	return computed(FactorContrarian, 0.90, "extreme")
}
