// Package classify assigns derived items to the 2×2 design cells.
package classify

import (
	"ecostim/domain/product"
)

// Cell classifies by eco signal and organic label alone.
func Cell(ecoSignal, organicLabel bool) product.Cell {
	return product.CellFor(ecoSignal, organicLabel)
}

// Item returns the item's cell, or CellNone when it fits no cell: the eco
// signal of an item without a grade is undefined, and an item without a
// display name cannot be presented.
func Item(it product.Item) product.Cell {
	if it.Name == "" || it.EcoScore.IsMissing() {
		return product.CellNone
	}
	return Cell(it.EcoScore.Good(), it.OrganicLabel)
}

// Stats counts what classification kept per cell and what it dropped.
type Stats struct {
	Kept    map[product.Cell]int
	Dropped int
}

// Classify returns copies of the classifiable items with Cell set, in input
// order. Unclassifiable items are dropped silently.
func Classify(items []product.Item) ([]product.Item, Stats) {
	stats := Stats{Kept: make(map[product.Cell]int, len(product.Cells))}
	out := make([]product.Item, 0, len(items))
	for _, it := range items {
		c := Item(it)
		if c == product.CellNone {
			stats.Dropped++
			continue
		}
		it.Cell = c
		it.EcoSignal = c.EcoSignal()
		out = append(out, it)
		stats.Kept[c]++
	}
	return out, stats
}

// DanishOnly keeps items with Danish language evidence.
func DanishOnly(items []product.Item) []product.Item {
	out := make([]product.Item, 0, len(items))
	for _, it := range items {
		if it.LanguageMatch {
			out = append(out, it)
		}
	}
	return out
}
