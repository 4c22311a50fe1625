package backtest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rudirid/ares-master-control-program-sub000/market"
)

// Event CSV columns. The header row is required; columns are matched by
// name so order does not matter and unknown columns are ignored.
const (
	ColTicker         = "ticker"
	ColEventTimestamp = "event_timestamp"
	ColTitle          = "title"
	ColBody           = "body"
	ColSource         = "source"
	ColCategory       = "category"
	ColPriceSensitive = "price_sensitive"
	ColSentiment      = "sentiment"
	ColDetectedAt     = "detected_at"
)

var errMissingHeader = errors.New("missing header")

// CSVEventsFeed reads news events one row at a time:
//
//	ticker,event_timestamp,title,body,source,category,price_sensitive,sentiment,detected_at
//
// Timestamps are RFC3339, or naive "2006-01-02 15:04:05" interpreted in
// the feed location. Rows with an empty or unparseable ticker or timestamp
// are skipped with a warning; a malformed optional field is dropped and the
// row kept. It optionally filters events to [From, To).
type CSVEventsFeed struct {
	f    *os.File
	r    *csv.Reader
	loc  *time.Location
	from time.Time
	to   time.Time
	log  zerolog.Logger

	cols    map[string]int
	line    int
	skipped int
}

func NewCSVEventsFeed(path string, loc *time.Location, from, to time.Time) (*CSVEventsFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := newEventsFeed(f, loc, from, to)
	feed.f = f
	if err := feed.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return feed, nil
}

// SetLogger sets where row warnings go. The default discards them.
func (f *CSVEventsFeed) SetLogger(log zerolog.Logger) {
	f.log = log.With().Str("component", "events_feed").Logger()
}

// Skipped counts rows dropped as unusable so far.
func (f *CSVEventsFeed) Skipped() int { return f.skipped }

func newEventsFeed(r io.Reader, loc *time.Location, from, to time.Time) *CSVEventsFeed {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &CSVEventsFeed{r: cr, loc: loc, from: from, to: to, log: zerolog.Nop()}
}

func (f *CSVEventsFeed) readHeader() error {
	header, err := f.r.Read()
	if err == io.EOF {
		return errMissingHeader
	}
	if err != nil {
		return err
	}
	f.line = 1
	f.cols = columnIndex(header)
	for _, c := range []string{ColTicker, ColEventTimestamp} {
		if _, ok := f.cols[c]; !ok {
			return fmt.Errorf("%w: column %q", errMissingHeader, c)
		}
	}
	return nil
}

func (f *CSVEventsFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVEventsFeed) Next() (market.NewsEvent, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.NewsEvent{}, false, nil
		}
		if err != nil {
			return market.NewsEvent{}, false, err
		}
		f.line++

		ev, ok := f.parseRow(row)
		if !ok || !inRange(ev.Timestamp, f.from, f.to) {
			continue
		}
		return ev, true, nil
	}
}

func (f *CSVEventsFeed) parseRow(row []string) (market.NewsEvent, bool) {
	get := func(col string) string { return field(row, f.cols, col) }
	warn := func(col, v string, err error) {
		f.log.Warn().Int("line", f.line).Str("column", col).Str("value", v).Err(err).Msg("malformed field")
	}

	ticker := strings.ToUpper(get(ColTicker))
	ts := get(ColEventTimestamp)
	if ticker == "" || ts == "" {
		f.skipped++
		return market.NewsEvent{}, false
	}

	t, err := parseTime(ts, f.loc)
	if err != nil {
		warn(ColEventTimestamp, ts, err)
		f.skipped++
		return market.NewsEvent{}, false
	}
	ev := market.NewsEvent{
		Ticker:    ticker,
		Timestamp: t,
		Title:     get(ColTitle),
		Body:      get(ColBody),
		Source:    get(ColSource),
		Category:  get(ColCategory),
	}

	if v := get(ColPriceSensitive); v != "" {
		if b, err := parseFlag(v); err != nil {
			warn(ColPriceSensitive, v, err)
		} else {
			ev.PriceSensitive = &b
		}
	}
	if v := get(ColSentiment); v != "" {
		if sc, err := strconv.ParseFloat(v, 64); err != nil {
			warn(ColSentiment, v, err)
		} else {
			ev.Sentiment = &sc
		}
	}
	// a zero DetectedAt leaves freshness neutral
	if v := get(ColDetectedAt); v != "" {
		if d, err := parseTime(v, f.loc); err != nil {
			warn(ColDetectedAt, v, err)
		} else {
			ev.DetectedAt = d
		}
	}
	return ev, true
}

// ReadEvents loads every usable event in path. Only I/O and header errors
// are returned; bad rows are logged to log and skipped.
func ReadEvents(path string, loc *time.Location, log zerolog.Logger) ([]market.NewsEvent, error) {
	feed, err := NewCSVEventsFeed(path, loc, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	defer feed.Close()
	feed.SetLogger(log)

	events, err := drain(feed)
	if err != nil {
		return nil, err
	}
	if n := feed.Skipped(); n > 0 {
		log.Warn().Str("path", path).Int("skipped", n).Int("events", len(events)).Msg("skipped event rows")
	}
	return events, nil
}

func drain(feed *CSVEventsFeed) ([]market.NewsEvent, error) {
	var out []market.NewsEvent
	for {
		ev, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, ev)
	}
}

// CSVEventSource re-reads an event file on every fetch and returns the rows
// at or after since. It lets a Poller follow a file that another process
// appends to; the Session drops rows it has already processed.
type CSVEventSource struct {
	Path     string
	Location *time.Location
	Log      zerolog.Logger
}

func (s CSVEventSource) Fetch(ctx context.Context, since time.Time) ([]market.NewsEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed, err := NewCSVEventsFeed(s.Path, s.Location, since, time.Time{})
	if err != nil {
		return nil, err
	}
	defer feed.Close()
	feed.SetLogger(s.Log)
	return drain(feed)
}

// LoadPrices reads daily bars:
//
//	ticker,date,open,high,low,close
//
// open, high and low may be omitted or empty; they default to close.
func LoadPrices(path string) (*market.PriceStore, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	store, err := ReadPrices(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

// ReadPrices parses a price CSV from r.
func ReadPrices(r io.Reader) (*market.PriceStore, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errMissingHeader
	}
	if err != nil {
		return nil, err
	}
	cols := columnIndex(header)
	for _, c := range []string{"ticker", "date", "close"} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: column %q", errMissingHeader, c)
		}
	}

	store := market.NewPriceStore()
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return store, nil
		}
		if err != nil {
			return nil, err
		}
		line++

		ticker := strings.ToUpper(field(row, cols, "ticker"))
		date := field(row, cols, "date")
		if ticker == "" || date == "" {
			continue
		}
		t, err := parseTime(date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var bar market.Bar
		bar.Date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		for _, p := range []struct {
			col string
			dst *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
		} {
			v := field(row, cols, p.col)
			if v == "" {
				continue
			}
			if *p.dst, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line %d: bad %s %q: %w", line, p.col, v, err)
			}
		}
		if bar.Close <= 0 {
			return nil, fmt.Errorf("line %d: close must be positive", line)
		}
		store.Add(ticker, bar)
	}
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, col string) string {
	i, ok := cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
