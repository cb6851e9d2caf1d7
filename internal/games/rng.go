package games

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// Source is the randomness an outcome function consumes.
type Source interface {
	Float64() float64
}

// NewSource returns a ChaCha8 generator seeded from the OS CSPRNG. A fresh
// source is drawn for every settlement.
func NewSource() Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("games: crypto/rand unavailable: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// FixedSource replays a fixed sequence of draws, cycling when exhausted.
// Intended for tests and simulations.
type FixedSource struct {
	Values []float64
	i      int
}

func (f *FixedSource) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.i%len(f.Values)]
	f.i++
	return v
}
