package experiment

import (
	"context"
	"math/rand"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal/blocks"
	"ecostim/ports"
)

// Plan partitions the stimulus set and fixes the block delivery order.
func Plan(stims []stimulus.Stimulus, nBlocks int, rng *rand.Rand) ([]blocks.Delivery, error) {
	if len(stims) == 0 {
		return nil, core.ErrNoItems
	}
	bs, err := blocks.StimulusBlocks(stims, nBlocks, rng)
	if err != nil {
		return nil, err
	}
	return blocks.DeliveryOrder(bs, rng), nil
}

// SessionStream gives every session its own reproducible block layout.
func SessionStream(ctx context.Context, rng ports.RNGPort, runID core.RunID, sessionID core.SessionID, seed int64) (*rand.Rand, error) {
	return rng.Stream(ctx, runID.String(), "session/"+sessionID.String(), seed)
}
