package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/product"
)

func TestItemCells(t *testing.T) {
	tests := []struct {
		name string
		item product.Item
		want product.Cell
	}{
		{"eco + label", product.Item{Name: "a", EcoScore: product.EcoScoreA, OrganicLabel: true}, product.CellEcoLabel},
		{"eco no label", product.Item{Name: "b", EcoScore: product.EcoScoreB}, product.CellEcoNoLabel},
		{"non-eco + label", product.Item{Name: "c", EcoScore: product.EcoScoreC, OrganicLabel: true}, product.CellNonEcoLabel},
		{"non-eco no label", product.Item{Name: "d", EcoScore: product.EcoScoreE}, product.CellNonEcoNoLabel},
		{"missing grade", product.Item{Name: "e", OrganicLabel: true}, product.CellNone},
		{"missing name", product.Item{EcoScore: product.EcoScoreA}, product.CellNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Item(tt.item))
		})
	}
}

func TestClassifyDropsSilently(t *testing.T) {
	items := []product.Item{
		{Name: "a", EcoScore: product.EcoScoreA, OrganicLabel: true},
		{Name: "x"},
		{Name: "d", EcoScore: product.EcoScoreD},
	}
	out, stats := Classify(items)
	require.Len(t, out, 2)
	assert.Equal(t, product.CellEcoLabel, out[0].Cell)
	assert.Equal(t, product.CellNonEcoNoLabel, out[1].Cell)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Kept[product.CellEcoLabel])
	assert.Equal(t, product.CellNone, items[0].Cell, "input is not mutated")
}

func TestDanishOnly(t *testing.T) {
	out := DanishOnly([]product.Item{{Name: "a", LanguageMatch: true}, {Name: "b"}})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Name)
}
