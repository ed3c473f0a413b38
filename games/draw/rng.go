/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package draw serves cards from pools: shuffled decks that run out,
// self-refilling pools, and weighted fortune draws.
package draw

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand/v2"
)

var (
	ErrEmptyPool    = errors.New("pool has no items")
	ErrUnknownTheme = errors.New("unknown theme")
)

// RNG is the randomness every draw goes through. *rand.Rand satisfies it.
type RNG interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// NewRNG returns a deterministic source for the given seed.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomRNG returns a source seeded from crypto/rand.
func NewRandomRNG() *rand.Rand {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(buf[:8]),
		binary.LittleEndian.Uint64(buf[8:]),
	))
}
