// Package accountnum issues human-facing account numbers: a two-letter
// prefix followed by digits. Uniqueness is ultimately enforced by the
// database's unique constraint; the generator's job is to make collisions
// vanishingly rare even under concurrent account creation, where a naive
// timestamp-plus-few-random-digits scheme is not enough.
package accountnum

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync/atomic"
	"time"
)

type Generator struct {
	prefix string
	now    func() time.Time
	rand   io.Reader
	seq    atomic.Uint64
}

// New returns a generator using the wall clock and crypto/rand. The clock
// and entropy source are swappable for deterministic tests.
func New(prefix string) *Generator {
	return &Generator{prefix: prefix, now: time.Now, rand: rand.Reader}
}

func NewWithSources(prefix string, now func() time.Time, entropy io.Reader) *Generator {
	return &Generator{prefix: prefix, now: now, rand: entropy}
}

// Next derives a number from three components: the low eight digits of the
// current unix milliseconds, a six-digit process-monotonic sequence, and
// four random digits. The sequence guarantees that up to a million
// consecutive in-process numbers are distinct regardless of clock
// granularity; the time and random digits keep separate processes apart.
func (g *Generator) Next() (string, error) {
	ts := g.now().UnixMilli() % 100_000_000
	seq := g.seq.Add(1) % 1_000_000

	n, err := rand.Int(g.rand, big.NewInt(10_000))
	if err != nil {
		return "", fmt.Errorf("Next: %w", err)
	}

	return fmt.Sprintf("%s%08d%06d%04d", g.prefix, ts, seq, n.Int64()), nil
}
