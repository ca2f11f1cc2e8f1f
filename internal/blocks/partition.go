package blocks

import (
	"fmt"
	"math/rand"
	"sort"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
)

// Partition spreads items round-robin over n blocks after shuffling each
// cell, then shuffles every block. Cells are visited in sorted key order and
// the deal continues where the previous cell stopped, so leftovers rotate
// across blocks instead of piling onto the first ones.
func Partition[T any](items []T, key func(T) string, n int, rng *rand.Rand) ([][]T, error) {
	if n <= 0 {
		return nil, core.NewParameterError("blocks", n)
	}

	byCell := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		byCell[k] = append(byCell[k], it)
	}
	keys := make([]string, 0, len(byCell))
	for k := range byCell {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]T, n)
	start := 0
	for _, k := range keys {
		group := byCell[k]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		for i, it := range group {
			b := (start + i) % n
			out[b] = append(out[b], it)
		}
		start = (start + len(group)) % n
	}
	for _, b := range out {
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}
	return out, nil
}

// StimulusBlocks partitions a stimulus set stratified over cell and salience.
func StimulusBlocks(stims []stimulus.Stimulus, n int, rng *rand.Rand) ([]stimulus.Block, error) {
	parts, err := Partition(stims, stimulus.Stimulus.BlockKey, n, rng)
	if err != nil {
		return nil, err
	}
	out := make([]stimulus.Block, len(parts))
	for i, p := range parts {
		out[i] = stimulus.Block{Index: i, Stimuli: p}
	}
	return out, nil
}

// TrialBlocks partitions trials stratified over the 8 trial cells.
func TrialBlocks(trials []stimulus.Trial, n int, rng *rand.Rand) ([][]stimulus.Trial, error) {
	return Partition(trials, func(t stimulus.Trial) string { return t.Cell().String() }, n, rng)
}

// Delivery is one block in presentation order.
type Delivery struct {
	Position int // 1-based, shown to the participant
	Total    int
	Block    stimulus.Block
}

// Last reports whether this is the final block shown.
func (d Delivery) Last() bool { return d.Position == d.Total }

// Progress renders the counter shown before a block.
func (d Delivery) Progress() string {
	return fmt.Sprintf("blok %d / %d", d.Position, d.Total)
}

// DeliveryOrder randomizes block order. Positions follow the randomized
// order, not construction order.
func DeliveryOrder(blocks []stimulus.Block, rng *rand.Rand) []Delivery {
	order := rng.Perm(len(blocks))
	out := make([]Delivery, len(order))
	for pos, idx := range order {
		out[pos] = Delivery{Position: pos + 1, Total: len(blocks), Block: blocks[idx]}
	}
	return out
}
