// Package rng provides the seeded random sources shared by the board and
// battle layers.
//
// A Source is deterministic with respect to its seed: two sources built from
// the same seed produce the same sequence of draws, which is what lets a
// game or a single battle be replayed from its recorded seed.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Source is a seeded pseudo-random stream. It is not safe for concurrent use.
type Source struct {
	seed  int64
	r     *rand.Rand
	draws int
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{seed: seed, r: rand.New(rand.NewSource(seed))}
}

// NewSeed generates a high-entropy seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Seed returns the seed the source was built from.
func (s *Source) Seed() int64 { return s.seed }

// Draws returns how many values have been drawn so far.
func (s *Source) Draws() int { return s.draws }

// Intn returns a value in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	s.draws++
	return s.r.Intn(n)
}

// Between returns a value in [lo, hi], both ends inclusive.
func (s *Source) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Float64 returns a value in [0.0, 1.0).
func (s *Source) Float64() float64 {
	s.draws++
	return s.r.Float64()
}

// Coin flips a fair coin.
func (s *Source) Coin() bool {
	return s.Intn(2) == 1
}

// Uint16 draws one 16-bit word.
func (s *Source) Uint16() uint16 {
	s.draws++
	return uint16(s.r.Uint32() >> 16)
}

// Weighted picks an index from weights, which need not sum to one.
// It returns -1 when every weight is zero.
func (s *Source) Weighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	x := s.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}
