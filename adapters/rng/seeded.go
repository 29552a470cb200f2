package rng

import (
	"context"
	"math/rand"

	"gllvmord/ports"
)

// Seeded implements ports.RNGPort with math/rand sources derived from the
// caller's seed, so identical inputs draw identical streams.
type Seeded struct{}

// New returns a seeded RNG adapter
func New() *Seeded {
	return &Seeded{}
}

var _ ports.RNGPort = (*Seeded)(nil)

// SeededStream creates a deterministic random number generator for a named operation
func (r *Seeded) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name != "" {
		seed = int64(hashString(name)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString is djb2
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
