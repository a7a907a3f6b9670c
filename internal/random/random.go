// Package random provides the per-player deterministic generator and seed helpers.
//
// SeededRandom is a 32-bit linear congruential generator. The same seed always
// yields the same sequence, which makes autoplacement and bot decisions reproducible.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"
)

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// SeededRandom is not safe for concurrent use; each instance belongs to one player.
type SeededRandom struct {
	seed  uint32
	state uint32
}

// New returns a generator starting at seed.
func New(seed uint32) *SeededRandom {
	return &SeededRandom{seed: seed, state: seed}
}

// Seed returns the value the generator was created with.
func (r *SeededRandom) Seed() uint32 {
	return r.seed
}

// Uint32 advances the generator and returns the new state.
func (r *SeededRandom) Uint32() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Float64 returns a value in [0, 1).
func (r *SeededRandom) Float64() float64 {
	return float64(r.Uint32()) / (1 << 32)
}

// Intn returns a value in [0, n). It panics if n <= 0, like math/rand.
func (r *SeededRandom) Intn(n int) int {
	if n <= 0 {
		panic("random: invalid argument to Intn")
	}
	return int(r.Float64() * float64(n))
}

// SeedFor derives a seed from a player identity and a point in time.
func SeedFor(identity string, at time.Time) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return h.Sum32() ^ uint32(at.UnixMilli())
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
