package engine

import (
	"math/rand"

	"github.com/nathoo/taleweaver/types"
)

// RNG is the seeded die behind every roll in a game. It counts the values
// it draws so a save can replay it to the same point; when bound to a
// State the count is kept in State.RNGPosition.
type RNG struct {
	seed  int64
	src   *rand.Rand
	pos   int64
	bound *types.State
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Bind records the seed and position in s, and keeps the position there
// on every roll.
func (r *RNG) Bind(s *types.State) *RNG {
	r.bound = s
	s.RNGSeed = r.seed
	s.RNGPosition = r.pos
	return r
}

// Roll returns a random integer in [1, sides]. Every roll draws exactly one
// value, including a one-sided roll, so replay is by count.
func (r *RNG) Roll(sides int) int {
	v := r.src.Int63()
	r.pos++
	if r.bound != nil {
		r.bound.RNGPosition = r.pos
	}
	if sides <= 1 {
		return 1
	}
	return int(v%int64(sides)) + 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of values drawn since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG recreates the RNG a save was made with, advanced past the
// values it had already drawn.
func RestoreRNG(seed int64, position int64) *RNG {
	r := NewRNG(seed)
	for ; r.pos < position; r.pos++ {
		r.src.Int63()
	}
	return r
}
