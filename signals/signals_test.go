package signals

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOddsRoundTrip(t *testing.T) {
	for p := 0.0011; p < 0.999; p += 0.0037 {
		assert.InDelta(t, p, OddsToProb(ProbToOdds(p)), 1e-9, "p=%f", p)
	}
}

func TestProbToOddsClamps(t *testing.T) {
	assert.Equal(t, 999.0, ProbToOdds(1))
	assert.Equal(t, 999.0, ProbToOdds(1.5))
	assert.Equal(t, 0.001, ProbToOdds(0))
	assert.Equal(t, 0.001, ProbToOdds(-0.2))
	assert.InDelta(t, 2.125, ProbToOdds(0.68), 1e-9)
}

func TestCombineWorkedExample(t *testing.T) {
	sydney := ASXSession()
	at := time.Date(2024, 3, 5, 10, 45, 0, 0, sydney.Location)

	fresh := Freshness(2*time.Minute + 18*time.Second)
	tod := TimeOfDay(at, sydney)
	tech := Technical(TechnicalSnapshot{HasRSI: true, RSI: 55, HasMACD: true, MACDBullish: true, Trend: TrendNone})
	mat := Materiality(true)
	con := Contrarian(0.36, 0.02, 0.8)

	assert.Equal(t, 1.25, fresh.Value)
	assert.Equal(t, 1.00, tod.Value)
	assert.InDelta(t, 1.0167, tech.Value, 1e-4)
	assert.Equal(t, 1.20, mat.Value)
	assert.Equal(t, 1.0, con.Value)

	conf, b := Combine(0.68, fresh, tod, tech, mat, con)
	assert.InDelta(t, 3.241, b.CombinedOdds, 1e-3)
	assert.InDelta(t, 0.764, conf, 1e-3)
	assert.Len(t, b.Factors, 5)
	assert.Equal(t, conf, b.Map()["confidence"])
}

func TestCombineBounded(t *testing.T) {
	huge := Factor{Name: "x", Value: 1e9}
	tiny := Factor{Name: "y", Value: 1e-9}

	conf, b := Combine(0.99, huge)
	assert.Equal(t, MaxConfidence, conf)
	assert.Greater(t, b.RawConfidence, MaxConfidence)

	conf, _ = Combine(0.01, tiny)
	assert.Equal(t, MinConfidence, conf)

	conf, _ = Combine(0.5)
	assert.InDelta(t, 0.5, conf, 1e-12)
}

func TestFreshnessTiers(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 1.25},
		{5 * time.Minute, 1.25},
		{6 * time.Minute, 1.15},
		{15 * time.Minute, 1.15},
		{29 * time.Minute, 1.05},
		{45 * time.Minute, 0.95},
		{60 * time.Minute, 0.95},
		{3 * time.Hour, 0.80},
	}
	for _, tt := range tests {
		f := Freshness(tt.age)
		assert.Equal(t, tt.want, f.Value, tt.age.String())
		assert.False(t, f.IsNeutral())
	}

	assert.True(t, Freshness(-time.Minute).IsNeutral())
}

func TestFreshnessFromStringsFailsOpen(t *testing.T) {
	f := FreshnessFromStrings("2024-03-05T10:00:00+11:00", "2024-03-04 23:04:00", zerolog.Nop())
	// detection string has no zone so it parses as UTC, 4m after 23:00Z
	assert.Equal(t, 1.25, f.Value)
	assert.False(t, f.IsNeutral())

	f = FreshnessFromStrings("yesterday-ish", "2024-03-04 23:04:00", zerolog.Nop())
	assert.True(t, f.IsNeutral())
	assert.Equal(t, 1.0, f.Value)
}

func TestTimeOfDay(t *testing.T) {
	s := ASXSession()
	day := func(h, m int) time.Time { return time.Date(2024, 3, 5, h, m, 0, 0, s.Location) }

	assert.Equal(t, 0.90, TimeOfDay(day(9, 30), s).Value)
	assert.Equal(t, 1.00, TimeOfDay(day(10, 0), s).Value)
	assert.Equal(t, 1.08, TimeOfDay(day(11, 0), s).Value)
	assert.Equal(t, 1.08, TimeOfDay(day(14, 59), s).Value)
	assert.Equal(t, 1.00, TimeOfDay(day(15, 30), s).Value)
	assert.Equal(t, 0.90, TimeOfDay(day(16, 0), s).Value)

	saturday := time.Date(2024, 3, 9, 12, 0, 0, 0, s.Location)
	assert.Equal(t, 0.90, TimeOfDay(saturday, s).Value)

	// UTC input is converted to Sydney time: 01:00Z in March is 12:00 AEDT
	assert.Equal(t, 1.08, TimeOfDay(time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC), s).Value)

	assert.True(t, TimeOfDay(time.Time{}, s).IsNeutral())
}

func TestTimeOfDayFromClock(t *testing.T) {
	s := ASXSession()
	assert.Equal(t, 1.00, TimeOfDayFromClock("10:45", s, zerolog.Nop()).Value)

	f := TimeOfDayFromClock("quarter past", s, zerolog.Nop())
	assert.True(t, f.IsNeutral())
	assert.Equal(t, 1.0, f.Value)
}

func TestTechnical(t *testing.T) {
	f := Technical(TechnicalSnapshot{})
	assert.True(t, f.IsNeutral())

	f = Technical(TechnicalSnapshot{HasRSI: true, RSI: 25})
	assert.Equal(t, 1.10, f.Value)

	f = Technical(TechnicalSnapshot{HasRSI: true, RSI: 80, HasMACD: true, Trend: TrendDown})
	assert.InDelta(t, (0.90+0.95+0.95)/3, f.Value, 1e-12)
	assert.False(t, f.IsNeutral())
}

func TestMateriality(t *testing.T) {
	assert.Equal(t, 1.20, Materiality(true).Value)
	assert.Equal(t, 0.95, Materiality(false).Value)
	assert.False(t, Materiality(false).IsNeutral())

	f := MaterialityUnknown()
	assert.Equal(t, 1.0, f.Value)
	assert.True(t, f.IsNeutral())
}

func TestContrarian(t *testing.T) {
	assert.Equal(t, 1.0, Contrarian(0.5, 0.2, 0.8).Value)
	assert.Equal(t, 0.90, Contrarian(0.9, 0.05, 0.8).Value)
	assert.Equal(t, 0.90, Contrarian(0.9, -0.2, 0.8).Value)
	assert.Equal(t, 0.80, Contrarian(0.9, 0.12, 0.8).Value)
	assert.Equal(t, 0.80, Contrarian(-0.95, -0.15, 0.8).Value)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-05 10:45:00")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestMirror(t *testing.T) {
	f := Mirror(Factor{Name: FactorTechnical, Value: 1.05})
	assert.InDelta(t, 0.95, f.Value, 1e-12)

	n := Mirror(Unavailable(FactorTechnical, "none"))
	assert.Equal(t, 1.0, n.Value)
	assert.True(t, n.IsNeutral())
}
