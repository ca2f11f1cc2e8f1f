package sampling

import (
	"math/rand"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal/pools"
)

// MaxTrialRetries bounds the extra attempts for one trial slot.
const MaxTrialRetries = 15

// TrialParams configures the paired 8-cell design.
type TrialParams struct {
	NTrials    int
	MaxRepeats int
	Seed       int64
}

// TrialSet is the result of a paired construction run.
type TrialSet struct {
	Trials    []stimulus.Trial
	Targets   map[stimulus.TrialCell]int
	Shortfall stimulus.ShortfallReport
	Usage     *NameUsage
	// GlobalFallbacks counts draws where no category had both sub-cells.
	GlobalFallbacks int
}

// RequiredCells returns the A-side and not-A-side cells for a congruence level.
func RequiredCells(congruent bool) (a, notA product.Cell) {
	if congruent {
		return product.CellEcoLabel, product.CellNonEcoNoLabel
	}
	return product.CellEcoNoLabel, product.CellNonEcoLabel
}

// CellTargets spreads n across the 8 cells: floor(n/8) each, with the
// remainder going to a random subset of cells.
func CellTargets(n int, rng *rand.Rand) map[stimulus.TrialCell]int {
	cells := stimulus.TrialCells
	base := n / len(cells)
	rem := n - base*len(cells)
	targets := make(map[stimulus.TrialCell]int, len(cells))
	for _, c := range cells {
		targets[c] = base
	}
	for _, idx := range rng.Perm(len(cells))[:rem] {
		targets[cells[idx]]++
	}
	return targets
}

// trialBuilder carries the mutable state of one construction run.
type trialBuilder struct {
	pools      *pools.Pools
	rng        *rand.Rand
	usage      *NameUsage
	maxRepeats int
	fallbacks  int
}

// BuildTrials constructs up to NTrials left/right comparison trials. usage
// may be nil, in which case the run gets a fresh counter. Slots that cannot
// be filled after bounded retries are reported in the shortfall, not raised.
func BuildTrials(p *pools.Pools, params TrialParams, usage *NameUsage) (*TrialSet, error) {
	if params.NTrials <= 0 {
		return nil, core.NewParameterError("n_trials", params.NTrials)
	}
	if params.MaxRepeats <= 0 {
		return nil, core.NewParameterError("max_repeats", params.MaxRepeats)
	}
	if usage == nil {
		usage = NewNameUsage()
	}

	rng := NewStream(params.Seed)
	b := &trialBuilder{pools: p, rng: rng, usage: usage, maxRepeats: params.MaxRepeats}

	targets := CellTargets(params.NTrials, rng)
	filled := make(map[stimulus.TrialCell]int, len(targets))
	shortfall := make(map[string]int)

	cells := stimulus.TrialCells
	trials := make([]stimulus.Trial, 0, params.NTrials)
	for _, ci := range rng.Perm(len(cells)) {
		cell := cells[ci]
		for slot := 0; slot < targets[cell]; slot++ {
			tr, ok := b.makeTrialWithRetry(cell)
			if !ok {
				shortfall[cell.String()]++
				continue
			}
			b.usage.Increment(tr.Left.Name)
			b.usage.Increment(tr.Right.Name)
			trials = append(trials, tr)
			filled[cell]++
		}
	}

	rng.Shuffle(len(trials), func(i, j int) { trials[i], trials[j] = trials[j], trials[i] })
	for i := range trials {
		trials[i].TrialID = i + 1
	}

	return &TrialSet{
		Trials:  trials,
		Targets: targets,
		Shortfall: stimulus.ShortfallReport{
			Requested: params.NTrials,
			Built:     len(trials),
			ByCell:    shortfall,
		},
		Usage:           usage,
		GlobalFallbacks: b.fallbacks,
	}, nil
}

// makeTrialWithRetry tries one slot at most 1+MaxTrialRetries times.
func (b *trialBuilder) makeTrialWithRetry(cell stimulus.TrialCell) (stimulus.Trial, bool) {
	for attempt := 0; attempt <= MaxTrialRetries; attempt++ {
		if tr, ok := b.makeTrial(cell); ok {
			return tr, true
		}
	}
	return stimulus.Trial{}, false
}

func (b *trialBuilder) makeTrial(cell stimulus.TrialCell) (stimulus.Trial, bool) {
	aNeed, notANeed := RequiredCells(cell.Congruent)
	poolA, poolNotA := b.choosePools(aNeed, notANeed)

	a, ok := Sample(b.rng, poolA, b.usage, b.maxRepeats)
	if !ok {
		return stimulus.Trial{}, false
	}
	notA, ok := Sample(b.rng, poolNotA, withPending{base: b.usage, name: a.Name}, b.maxRepeats)
	if !ok {
		return stimulus.Trial{}, false
	}

	left, right := notA, a
	if cell.LeftIsA {
		left, right = a, notA
	}
	return stimulus.Trial{
		Congruent: cell.Congruent,
		LeftIsA:   cell.LeftIsA,
		Salience:  cell.Salience,
		Left:      stimulus.Summarize(left),
		Right:     stimulus.Summarize(right),
	}, true
}

// choosePools scans categories in shuffled order for one holding both
// sub-cells, falling back to the global pools.
func (b *trialBuilder) choosePools(aNeed, notANeed product.Cell) (pools.Pool, pools.Pool) {
	cats := b.pools.Categories()
	b.rng.Shuffle(len(cats), func(i, j int) { cats[i], cats[j] = cats[j], cats[i] })
	for _, c := range cats {
		pa, pn := b.pools.Category(c, aNeed), b.pools.Category(c, notANeed)
		if len(pa) > 0 && len(pn) > 0 {
			return pa, pn
		}
	}
	b.fallbacks++
	return b.pools.Cell(aNeed), b.pools.Cell(notANeed)
}
