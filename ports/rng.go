package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream scoped to one run and stage,
	// so stages of the same run never share a sequence
	Stream(ctx context.Context, runID, stageName string, baseSeed int64) (*rand.Rand, error)
}
