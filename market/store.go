package market

import (
	"sort"
	"time"
)

// PriceStore holds daily bars per ticker, sorted by date. It answers the
// point-in-time queries the simulator needs without ever handing out data
// dated after the requested cut-off.
type PriceStore struct {
	series map[string][]Bar
}

func NewPriceStore() *PriceStore {
	return &PriceStore{series: make(map[string][]Bar)}
}

// Add inserts b for ticker, replacing any existing bar on the same date.
// Missing open/high/low are filled from close.
func (s *PriceStore) Add(ticker string, b Bar) {
	if b.High == 0 {
		b.High = b.Close
	}
	if b.Low == 0 {
		b.Low = b.Close
	}
	if b.Open == 0 {
		b.Open = b.Close
	}

	bars := s.series[ticker]
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(b.Date) })
	if i < len(bars) && bars[i].Date.Equal(b.Date) {
		bars[i] = b
		return
	}
	bars = append(bars, Bar{})
	copy(bars[i+1:], bars[i:])
	bars[i] = b
	s.series[ticker] = bars
}

func (s *PriceStore) Has(ticker string) bool {
	return len(s.series[ticker]) > 0
}

func (s *PriceStore) Len(ticker string) int {
	return len(s.series[ticker])
}

// Tickers returns every ticker with at least one bar, sorted.
func (s *PriceStore) Tickers() []string {
	out := make([]string, 0, len(s.series))
	for t, bars := range s.series {
		if len(bars) > 0 {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// FirstOnOrAfter returns the earliest bar dated at or after t.
func (s *PriceStore) FirstOnOrAfter(ticker string, t time.Time) (Bar, bool) {
	bars := s.series[ticker]
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(t) })
	if i == len(bars) {
		return Bar{}, false
	}
	return bars[i], true
}

// LastOnOrBefore returns the latest bar dated at or before t.
func (s *PriceStore) LastOnOrBefore(ticker string, t time.Time) (Bar, bool) {
	bars := s.series[ticker]
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(t) })
	if i == 0 {
		return Bar{}, false
	}
	return bars[i-1], true
}

// Last returns the final bar of the series.
func (s *PriceStore) Last(ticker string) (Bar, bool) {
	bars := s.series[ticker]
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}

// Window returns up to n bars dated at or before upto, oldest first.
// The returned slice is a copy.
func (s *PriceStore) Window(ticker string, upto time.Time, n int) []Bar {
	bars := s.series[ticker]
	end := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(upto) })
	start := end - n
	if start < 0 {
		start = 0
	}
	out := make([]Bar, end-start)
	copy(out, bars[start:end])
	return out
}

// Between returns bars with after < Date <= upto, oldest first.
func (s *PriceStore) Between(ticker string, after, upto time.Time) []Bar {
	bars := s.series[ticker]
	start := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(after) })
	end := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(upto) })
	if end <= start {
		return nil
	}
	out := make([]Bar, end-start)
	copy(out, bars[start:end])
	return out
}
