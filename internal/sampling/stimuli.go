package sampling

import (
	"fmt"
	"strings"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/stimulus"
)

// StimulusParams configures the single-item 2×2 design.
type StimulusParams struct {
	PerCell int
	Seed    int64
}

// PerCellFromTotal splits a target total evenly across the 4 cells.
func PerCellFromTotal(total int) int {
	return total / len(product.Cells)
}

// CellDeficit describes one cell that cannot meet the quota.
type CellDeficit struct {
	Cell      product.Cell
	Available int
	Deficit   int
}

// QuotaError is the fatal configuration error raised before any sampling
// when a requested per-cell quota exceeds a cell's pool.
type QuotaError struct {
	Need      int
	Available map[product.Cell]int
	Deficits  []CellDeficit
}

func (e *QuotaError) Error() string {
	parts := make([]string, 0, len(e.Deficits))
	for _, d := range e.Deficits {
		parts = append(parts, fmt.Sprintf("%s %s has %d (short %d)", d.Cell, d.Cell.Pair(), d.Available, d.Deficit))
	}
	return fmt.Sprintf("%v: need %d per cell; %s", core.ErrInsufficientItems, e.Need, strings.Join(parts, "; "))
}

func (e *QuotaError) Unwrap() error { return core.ErrInsufficientItems }

// CheckQuota returns a *QuotaError naming every cell whose pool is smaller than need.
func CheckQuota(byCell map[product.Cell][]product.Item, need int) error {
	qe := &QuotaError{Need: need, Available: make(map[product.Cell]int, len(product.Cells))}
	for _, c := range product.Cells {
		n := len(byCell[c])
		qe.Available[c] = n
		if n < need {
			qe.Deficits = append(qe.Deficits, CellDeficit{Cell: c, Available: n, Deficit: need - n})
		}
	}
	if len(qe.Deficits) > 0 {
		return qe
	}
	return nil
}

// GroupByCell splits classified items by cell, keeping input order.
func GroupByCell(items []product.Item) map[product.Cell][]product.Item {
	out := make(map[product.Cell][]product.Item, len(product.Cells))
	for _, it := range items {
		if it.Cell.Valid() {
			out[it.Cell] = append(out[it.Cell], it)
		}
	}
	return out
}

// BuildStimuli samples PerCell items from each of the 4 cells, balances
// salience within each cell, shuffles the whole set and numbers it 1..N.
// Items must already carry their Cell.
func BuildStimuli(items []product.Item, p StimulusParams) ([]stimulus.Stimulus, error) {
	if p.PerCell <= 0 {
		return nil, core.NewParameterError("per_cell", p.PerCell)
	}
	byCell := GroupByCell(items)
	if err := CheckQuota(byCell, p.PerCell); err != nil {
		return nil, err
	}

	stims := make([]stimulus.Stimulus, 0, p.PerCell*len(product.Cells))
	for _, c := range product.Cells {
		pool := byCell[c]
		cellRng := NewStream(DeriveCellSeed(p.Seed, c))
		for _, i := range cellRng.Perm(len(pool))[:p.PerCell] {
			stims = append(stims, stimulus.FromItem(pool[i]))
		}
	}

	rng := NewStream(p.Seed)
	AssignSalience(stims, rng.Shuffle)

	rng.Shuffle(len(stims), func(i, j int) { stims[i], stims[j] = stims[j], stims[i] })
	for i := range stims {
		stims[i].ItemID = i + 1
	}
	return stims, nil
}

// AssignSalience splits each cell into low and high halves after a shuffle.
// With an odd count the extra item goes to high. Every stimulus ends up with a level.
func AssignSalience(stims []stimulus.Stimulus, shuffle func(n int, swap func(i, j int))) {
	for _, c := range product.Cells {
		var idx []int
		for i := range stims {
			if stims[i].Cell() == c {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			continue
		}
		shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		half := len(idx) / 2
		for k, i := range idx {
			if k < half {
				stims[i].Salience = stimulus.SalienceLow
			} else {
				stims[i].Salience = stimulus.SalienceHigh
			}
		}
	}
}

// ApplyNameOverrides replaces display names by item ID after numbering.
// Blank overrides are ignored so names never become empty.
func ApplyNameOverrides(stims []stimulus.Stimulus, overrides map[int]string) int {
	applied := 0
	for i := range stims {
		if name, ok := overrides[stims[i].ItemID]; ok && strings.TrimSpace(name) != "" {
			stims[i].Name = strings.TrimSpace(name)
			applied++
		}
	}
	return applied
}
