// Package id issues ULIDs for runs and simulation records.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var wall = NewGenerator(cryptoSeed())

func cryptoSeed() int64 {
	var seed int64
	if err := binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}

// New returns a ULID stamped with the current wall-clock time. Use it for
// run IDs; simulation records use a seeded Generator instead.
func New() string {
	return wall.At(time.Now().UTC())
}

// Generator produces reproducible ULIDs: the timestamp part comes from the
// caller (simulated time) and the entropy from a seeded PRNG. Two generators
// with the same seed fed the same timestamps yield the same IDs.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// At returns an ID stamped with t. Timestamps before the Unix epoch are
// clamped to zero.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := uint64(0)
	if t.UnixMilli() > 0 {
		ms = uint64(t.UnixMilli())
	}
	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		// monotonic entropy overflowed within one millisecond
		id = ulid.MustNew(ms, rand.New(rand.NewSource(int64(ms))))
	}
	return id.String()
}
