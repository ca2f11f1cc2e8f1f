package sampling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal/testkit"
)

func TestBuildStimuli_BalancedDesign(t *testing.T) {
	items := testkit.NewCatalogGenerator(testkit.DefaultCatalogConfig()).Items()

	stims, err := BuildStimuli(items, StimulusParams{PerCell: PerCellFromTotal(240), Seed: 637})
	require.NoError(t, err)
	require.Len(t, stims, 240)

	perCell := map[product.Cell]int{}
	perSalience := map[string]int{}
	names := map[string]bool{}
	for i, s := range stims {
		assert.Equal(t, i+1, s.ItemID)
		perCell[s.Cell()]++
		perSalience[s.BlockKey()]++
		assert.False(t, names[s.Name], "duplicate %q", s.Name)
		names[s.Name] = true
		assert.Equal(t, s.EcoScore.Good(), s.EcoSignal)
	}
	for _, c := range product.Cells {
		assert.Equal(t, 60, perCell[c], "cell %s", c)
		assert.Equal(t, 30, perSalience[string(c)+"/"+string(stimulus.SalienceLow)])
		assert.Equal(t, 30, perSalience[string(c)+"/"+string(stimulus.SalienceHigh)])
	}
}

func TestBuildStimuli_Deterministic(t *testing.T) {
	items := testkit.NewCatalogGenerator(testkit.DefaultCatalogConfig()).Items()
	p := StimulusParams{PerCell: 60, Seed: 637}

	a, err := BuildStimuli(items, p)
	require.NoError(t, err)
	b, err := BuildStimuli(items, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	p.Seed = 638
	c, err := BuildStimuli(items, p)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestBuildStimuli_QuotaError(t *testing.T) {
	cfg := testkit.DefaultCatalogConfig()
	cfg.PerCell[product.CellEcoLabel] = 50
	items := testkit.NewCatalogGenerator(cfg).Items()

	_, err := BuildStimuli(items, StimulusParams{PerCell: 60, Seed: 637})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientItems))

	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	require.Len(t, qe.Deficits, 1)
	assert.Equal(t, product.CellEcoLabel, qe.Deficits[0].Cell)
	assert.Equal(t, 50, qe.Deficits[0].Available)
	assert.Equal(t, 10, qe.Deficits[0].Deficit)
	assert.Contains(t, err.Error(), "A_label")
}

func TestBuildStimuli_RejectsNonPositive(t *testing.T) {
	_, err := BuildStimuli(nil, StimulusParams{PerCell: 0})
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestAssignSalience_OddCount(t *testing.T) {
	stims := make([]stimulus.Stimulus, 5)
	for i := range stims {
		stims[i].EcoSignal = true
		stims[i].OrganicBadge = true
	}
	AssignSalience(stims, NewStream(3).Shuffle)

	high := 0
	for _, s := range stims {
		require.NotEmpty(t, s.Salience)
		if s.Salience == stimulus.SalienceHigh {
			high++
		}
	}
	assert.Equal(t, 3, high)
}

func TestApplyNameOverrides(t *testing.T) {
	stims := []stimulus.Stimulus{{ItemID: 1, Name: "a"}, {ItemID: 2, Name: "b"}}
	n := ApplyNameOverrides(stims, map[int]string{1: " Økomælk ", 2: " ", 9: "x"})
	assert.Equal(t, 1, n)
	assert.Equal(t, "Økomælk", stims[0].Name)
	assert.Equal(t, "b", stims[1].Name)
}
