// Package random provides the seeded draw sequence behind every Randomizer a
// script creates.
//
// One [Stream] exists per evaluation. Randomizer objects, noise fills, palette
// picks and the script engine's Math.random all draw from it in program
// order, so the same seed and the same script always produce the same values.
package random

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// Stream is a deterministic pseudo-random sequence. It is not safe for
// concurrent use; an evaluation is single-threaded.
type Stream struct {
	seed  uint64
	rng   *mrand.Rand
	draws uint64
}

// NewStream returns a stream positioned at the start of the sequence for seed.
func NewStream(seed uint64) *Stream {
	return &Stream{
		seed: seed,
		rng:  mrand.New(mrand.NewPCG(seed, seed^0xdeadbeef)),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 { return s.seed }

// Draws returns how many values have been drawn so far.
func (s *Stream) Draws() uint64 { return s.draws }

// Float64 draws the next value in [0, 1).
func (s *Stream) Float64() float64 {
	s.draws++
	return s.rng.Float64()
}

// Range draws the next value scaled into [lo, hi). When hi < lo the bounds
// are swapped.
func (s *Stream) Range(lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.Float64()*(hi-lo)
}

// Intn draws the next value in [0, n). n <= 0 yields 0 without drawing.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// DeviceSeed returns a non-zero seed read from the operating system's
// entropy source. It is used when the caller asks for a fresh random image.
func DeviceSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	if seed := binary.LittleEndian.Uint64(buf[:]); seed != 0 {
		return seed
	}
	return 1
}
