// Package pools partitions classified items by (category, cell) with a
// global per-cell tier as fallback.
package pools

import (
	"sort"

	"ecostim/domain/product"
)

// Pool is an ordered list of items sharing a cell.
type Pool []product.Item

// Pools holds both tiers. Every item in a category pool is also in the
// global pool of its cell.
type Pools struct {
	ByCategory map[string]map[product.Cell]Pool
	Global     map[product.Cell]Pool
	categories []string
}

// Build groups items in input order. Items with CellNone are skipped; the
// classifier has already dropped them in normal use.
func Build(items []product.Item) *Pools {
	p := &Pools{
		ByCategory: make(map[string]map[product.Cell]Pool),
		Global:     make(map[product.Cell]Pool, len(product.Cells)),
	}
	for _, c := range product.Cells {
		p.Global[c] = Pool{}
	}
	for _, it := range items {
		if !it.Cell.Valid() {
			continue
		}
		cat := it.Category
		if cat == "" {
			cat = product.UnknownCategory
		}
		byCell, ok := p.ByCategory[cat]
		if !ok {
			byCell = make(map[product.Cell]Pool, len(product.Cells))
			for _, c := range product.Cells {
				byCell[c] = Pool{}
			}
			p.ByCategory[cat] = byCell
			p.categories = append(p.categories, cat)
		}
		byCell[it.Cell] = append(byCell[it.Cell], it)
		p.Global[it.Cell] = append(p.Global[it.Cell], it)
	}
	sort.Strings(p.categories)
	return p
}

// Categories returns the category keys in sorted order. Callers shuffle it
// with their run's random source before scanning.
func (p *Pools) Categories() []string {
	return append([]string(nil), p.categories...)
}

// Category returns the pool for (category, cell); empty when absent.
func (p *Pools) Category(category string, cell product.Cell) Pool {
	if byCell, ok := p.ByCategory[category]; ok {
		return byCell[cell]
	}
	return nil
}

// Cell returns the global pool for a cell.
func (p *Pools) Cell(cell product.Cell) Pool {
	return p.Global[cell]
}

// Sizes reports the global pool size per cell.
func (p *Pools) Sizes() map[product.Cell]int {
	out := make(map[product.Cell]int, len(p.Global))
	for c, pool := range p.Global {
		out[c] = len(pool)
	}
	return out
}
