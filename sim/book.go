package sim

import "github.com/rudirid/ares-master-control-program-sub000/risk"

// book is the active position set, kept in open order so iteration is
// deterministic.
type book struct {
	active   []*Position
	byTicker map[string]*Position
}

func newBook() *book {
	return &book{byTicker: make(map[string]*Position)}
}

func (b *book) open(p *Position) bool {
	if _, dup := b.byTicker[p.Ticker]; dup {
		return false
	}
	b.active = append(b.active, p)
	b.byTicker[p.Ticker] = p
	return true
}

func (b *book) remove(p *Position) {
	delete(b.byTicker, p.Ticker)
	for i, q := range b.active {
		if q == p {
			b.active = append(b.active[:i], b.active[i+1:]...)
			return
		}
	}
}

func (b *book) has(ticker string) bool {
	_, ok := b.byTicker[ticker]
	return ok
}

// snapshot copies the active slice so closes can mutate the book while
// iterating.
func (b *book) snapshot() []*Position {
	return append([]*Position(nil), b.active...)
}

// OpenPositions implements risk.PositionBook.
func (b *book) OpenPositions() []risk.BookEntry {
	out := make([]risk.BookEntry, len(b.active))
	for i, p := range b.active {
		out[i] = p.bookEntry()
	}
	return out
}

// Lookup implements risk.PositionBook.
func (b *book) Lookup(id string) (risk.BookEntry, bool) {
	for _, p := range b.active {
		if p.ID == id {
			return p.bookEntry(), true
		}
	}
	return risk.BookEntry{}, false
}
