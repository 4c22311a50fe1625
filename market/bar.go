package market

import "time"

// Bar is one daily OHLC price record for a ticker.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Day truncates t to midnight in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextTradingDay returns the first weekday strictly after t's calendar day.
func NextTradingDay(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
