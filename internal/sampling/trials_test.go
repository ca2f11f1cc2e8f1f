package sampling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal/pools"
	"ecostim/internal/testkit"
)

func defaultPools() *pools.Pools {
	return pools.Build(testkit.NewCatalogGenerator(testkit.DefaultCatalogConfig()).Items())
}

func TestBuildTrials_FullDesign(t *testing.T) {
	set, err := BuildTrials(defaultPools(), TrialParams{NTrials: 160, MaxRepeats: 5, Seed: 637}, nil)
	require.NoError(t, err)
	require.Len(t, set.Trials, 160)
	assert.True(t, set.Shortfall.Empty(), set.Shortfall.String())
	assert.Zero(t, set.GlobalFallbacks)

	perCell := map[stimulus.TrialCell]int{}
	for i, tr := range set.Trials {
		assert.Equal(t, i+1, tr.TrialID)
		perCell[tr.Cell()]++

		a, notA := tr.A(), tr.NotA()
		assert.True(t, a.Sustainable, "A side must carry the eco signal")
		assert.False(t, notA.Sustainable)
		if tr.Congruent {
			assert.True(t, a.Label)
			assert.False(t, notA.Label)
		} else {
			assert.False(t, a.Label)
			assert.True(t, notA.Label)
		}
		assert.Equal(t, tr.Left.Category, tr.Right.Category)
	}
	for _, c := range stimulus.TrialCells {
		assert.Equal(t, 20, perCell[c], c.String())
	}
	assert.LessOrEqual(t, set.Usage.Max(), 5)
}

func TestBuildTrials_RepeatCap(t *testing.T) {
	p := pools.Build(testkit.NewCatalogGenerator(testkit.Uniform(6, 11, "dairies")).Items())
	set, err := BuildTrials(p, TrialParams{NTrials: 80, MaxRepeats: 2, Seed: 5}, nil)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, tr := range set.Trials {
		counts[tr.Left.Name]++
		counts[tr.Right.Name]++
	}
	for name, n := range counts {
		assert.LessOrEqual(t, n, 2, name)
	}
	assert.Equal(t, 80, set.Shortfall.Built+set.Shortfall.Total())
	assert.Equal(t, len(set.Trials), set.Shortfall.Built)
}

func TestBuildTrials_Shortfall(t *testing.T) {
	p := pools.Build(testkit.NewCatalogGenerator(testkit.Uniform(1, 3, "dairies")).Items())
	set, err := BuildTrials(p, TrialParams{NTrials: 8, MaxRepeats: 1, Seed: 9}, nil)
	require.NoError(t, err)

	// one item per cell and one use per name leaves room for one trial per congruence level
	assert.Len(t, set.Trials, 2)
	assert.Equal(t, 6, set.Shortfall.Total())
	sum := 0
	for _, n := range set.Shortfall.ByCell {
		sum += n
	}
	assert.Equal(t, 6, sum)
	assert.Contains(t, set.Shortfall.String(), "built 2/8")
}

func TestBuildTrials_GlobalFallback(t *testing.T) {
	items := []product.Item{
		{Name: "skyr", Category: "dairies", Cell: product.CellEcoLabel, EcoSignal: true, OrganicLabel: true},
		{Name: "chips", Category: "snacks", Cell: product.CellNonEcoNoLabel},
	}
	set, err := BuildTrials(pools.Build(items), TrialParams{NTrials: 1, MaxRepeats: 5, Seed: 1}, nil)
	require.NoError(t, err)
	if len(set.Trials) == 1 {
		assert.Equal(t, 1, set.GlobalFallbacks)
		assert.NotEqual(t, set.Trials[0].Left.Category, set.Trials[0].Right.Category)
	}
	assert.Positive(t, set.GlobalFallbacks)
}

func TestBuildTrials_SharedUsage(t *testing.T) {
	usage := NewNameUsage()
	p := pools.Build(testkit.NewCatalogGenerator(testkit.Uniform(4, 2, "dairies")).Items())
	for _, it := range p.Cell(product.CellEcoLabel) {
		for i := 0; i < 3; i++ {
			usage.Increment(it.Name)
		}
	}
	set, err := BuildTrials(p, TrialParams{NTrials: 16, MaxRepeats: 3, Seed: 4}, usage)
	require.NoError(t, err)
	for _, tr := range set.Trials {
		assert.False(t, tr.Congruent, "congruent trials need A_label items, all capped")
	}
	assert.Same(t, usage, set.Usage)
}

func TestBuildTrials_Deterministic(t *testing.T) {
	params := TrialParams{NTrials: 100, MaxRepeats: 5, Seed: 637}
	a, err := BuildTrials(defaultPools(), params, nil)
	require.NoError(t, err)
	b, err := BuildTrials(defaultPools(), params, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Trials, b.Trials)
	assert.Equal(t, a.Targets, b.Targets)
}

func TestBuildTrials_InvalidParams(t *testing.T) {
	_, err := BuildTrials(defaultPools(), TrialParams{NTrials: 0, MaxRepeats: 5}, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
	_, err = BuildTrials(defaultPools(), TrialParams{NTrials: 8, MaxRepeats: 0}, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestCellTargets_Remainder(t *testing.T) {
	targets := CellTargets(13, NewStream(1))
	sum, twos := 0, 0
	for _, c := range stimulus.TrialCells {
		n := targets[c]
		require.True(t, n == 1 || n == 2, "got %d", n)
		sum += n
		if n == 2 {
			twos++
		}
	}
	assert.Equal(t, 13, sum)
	assert.Equal(t, 5, twos)
}

func TestRequiredCells(t *testing.T) {
	a, notA := RequiredCells(true)
	assert.Equal(t, product.CellEcoLabel, a)
	assert.Equal(t, product.CellNonEcoNoLabel, notA)
	a, notA = RequiredCells(false)
	assert.Equal(t, product.CellEcoNoLabel, a)
	assert.Equal(t, product.CellNonEcoLabel, notA)
}
