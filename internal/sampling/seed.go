package sampling

import (
	"math/rand"

	"ecostim/domain/product"
)

// cellSeedStride is prime so derived cell seeds never collide for nearby base seeds.
const cellSeedStride = 7919

// DeriveCellSeed combines the base seed with the cell's position in the
// canonical order (product.Cells). Stable across runs and builds.
func DeriveCellSeed(base int64, cell product.Cell) int64 {
	return base + cellSeedStride*int64(cell.Index()+1)
}

// NewStream returns a random source seeded deterministically.
func NewStream(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
