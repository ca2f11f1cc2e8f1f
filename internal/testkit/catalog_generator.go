package testkit

import (
	"fmt"
	"math/rand"

	"ecostim/domain/product"
)

// CatalogConfig configures the synthetic product catalogue generator
type CatalogConfig struct {
	PerCell    map[product.Cell]int `json:"per_cell"`
	Categories []string             `json:"categories"`
	DanishRate float64              `json:"danish_rate"` // share of items with language match
	Seed       int64                `json:"seed"`
}

// DefaultCatalogConfig returns a catalogue large enough for the 240-item design
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		PerCell: map[product.Cell]int{
			product.CellEcoLabel:      80,
			product.CellEcoNoLabel:    120,
			product.CellNonEcoLabel:   70,
			product.CellNonEcoNoLabel: 200,
		},
		Categories: []string{"dairies", "breads", "beverages", "snacks", "cereals"},
		DanishRate: 0.6,
		Seed:       42,
	}
}

// Uniform builds a config with n items in every cell.
func Uniform(n int, seed int64, categories ...string) CatalogConfig {
	cfg := DefaultCatalogConfig()
	cfg.Seed = seed
	for _, c := range product.Cells {
		cfg.PerCell[c] = n
	}
	if len(categories) > 0 {
		cfg.Categories = categories
	}
	return cfg
}

// CatalogGenerator generates classified items with unique display names
type CatalogGenerator struct {
	config CatalogConfig
	rng    *rand.Rand
}

func NewCatalogGenerator(config CatalogConfig) *CatalogGenerator {
	return &CatalogGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	goodGrades = []product.EcoScore{product.EcoScoreA, product.EcoScoreB}
	badGrades  = []product.EcoScore{product.EcoScoreC, product.EcoScoreD, product.EcoScoreE}
)

// Items generates the catalogue cell by cell in canonical order.
func (g *CatalogGenerator) Items() []product.Item {
	var items []product.Item
	serial := 0
	for _, cell := range product.Cells {
		for i := 0; i < g.config.PerCell[cell]; i++ {
			serial++
			items = append(items, g.item(cell, serial))
		}
	}
	return items
}

func (g *CatalogGenerator) item(cell product.Cell, serial int) product.Item {
	grade := badGrades[g.rng.Intn(len(badGrades))]
	if cell.EcoSignal() {
		grade = goodGrades[g.rng.Intn(len(goodGrades))]
	}
	labels := "en:no-gluten"
	if cell.OrganicLabel() {
		labels = "en:organic,da:økologisk"
	}
	danish := g.rng.Float64() < g.config.DanishRate
	cat := product.UnknownCategory
	if len(g.config.Categories) > 0 {
		cat = g.config.Categories[g.rng.Intn(len(g.config.Categories))]
	}
	return product.Item{
		Name:          fmt.Sprintf("Vare %04d %s", serial, cell),
		Category:      cat,
		EcoScore:      grade,
		EcoSignal:     grade.Good(),
		OrganicLabel:  cell.OrganicLabel(),
		LanguageMatch: danish,
		Cell:          cell,
		LabelsTags:    labels,
		LanguagesTags: "da",
		CountriesTags: "en:denmark",
	}
}

// RawRows renders items back into raw dump rows, plus a share of
// non-Danish-market rows for the cleaning pass to drop.
func (g *CatalogGenerator) RawRows(foreign int) []product.RawAttributes {
	items := g.Items()
	rows := make([]product.RawAttributes, 0, len(items)+foreign)
	for _, it := range items {
		row := product.RawAttributes{
			product.ColProductName:   it.Name,
			product.ColMainCategory:  it.Category,
			product.ColLabelsTags:    it.LabelsTags,
			product.ColCountriesTags: it.CountriesTags,
			product.ColEcoscoreGrade: it.EcoScore.Lower(),
		}
		if it.LanguageMatch {
			row[product.ColLanguagesTags] = "da"
		}
		rows = append(rows, row)
	}
	for i := 0; i < foreign; i++ {
		rows = append(rows, product.RawAttributes{
			product.ColProductName:   fmt.Sprintf("Import %d", i+1),
			product.ColCountriesTags: "en:france",
			product.ColEcoscoreGrade: "a",
		})
	}
	return rows
}
