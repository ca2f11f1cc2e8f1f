package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"ecostim/ports"
)

// SeededRNG derives independent deterministic streams from a base seed and a name
type SeededRNG struct{}

var _ ports.RNGPort = SeededRNG{}

func New() SeededRNG { return SeededRNG{} }

// SeededStream returns a stream that depends only on name and seed
func (SeededRNG) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(seed ^ nameSeed(name))), nil
}

// Stream scopes a stream to one run and stage
func (r SeededRNG) Stream(ctx context.Context, runID, stageName string, baseSeed int64) (*rand.Rand, error) {
	return r.SeededStream(ctx, runID+"/"+stageName, baseSeed)
}

// nameSeed is a stable 64-bit FNV-1a hash of name; "" maps to 0 so the
// empty name reproduces the bare seed.
func nameSeed(name string) int64 {
	if name == "" {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
