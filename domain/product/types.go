package product

import (
	"strings"
)

// RawAttributes holds the source columns of one product row. Absent columns read as "".
type RawAttributes map[string]string

// Get returns the trimmed value of a column, "" when the column is absent.
func (r RawAttributes) Get(column string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r[column])
}

// Has reports whether the column exists in the row at all.
func (r RawAttributes) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Source column names of the public products dump
const (
	ColProductName        = "product_name"
	ColProductNameDA      = "product_name_da"
	ColProductNameEN      = "product_name_en"
	ColBrands             = "brands"
	ColCategoriesTags     = "categories_tags"
	ColMainCategory       = "main_category"
	ColMainCategoryEN     = "main_category_en"
	ColLabelsTags         = "labels_tags"
	ColLanguagesTags      = "languages_tags"
	ColCountriesTags      = "countries_tags"
	ColLC                 = "lc"
	ColEcoscoreGrade      = "ecoscore_grade"
	ColEnvironmentalGrade = "environmental_score_grade"
	ColEcoscoreScore      = "ecoscore_score"
)

// UnknownCategory is the category sentinel for rows without one.
const UnknownCategory = "unknown"

// EcoScore is a sustainability grade A..E, or "" when missing.
type EcoScore string

const (
	EcoScoreA       EcoScore = "A"
	EcoScoreB       EcoScore = "B"
	EcoScoreC       EcoScore = "C"
	EcoScoreD       EcoScore = "D"
	EcoScoreE       EcoScore = "E"
	EcoScoreMissing EcoScore = ""
)

// EcoGrades lists the grade alphabet from best to worst.
var EcoGrades = []EcoScore{EcoScoreA, EcoScoreB, EcoScoreC, EcoScoreD, EcoScoreE}

// Valid reports whether the score is one of the five grades.
func (e EcoScore) Valid() bool {
	switch e {
	case EcoScoreA, EcoScoreB, EcoScoreC, EcoScoreD, EcoScoreE:
		return true
	}
	return false
}

func (e EcoScore) IsMissing() bool { return !e.Valid() }

// Good reports whether the grade is one of the top two.
func (e EcoScore) Good() bool {
	return e == EcoScoreA || e == EcoScoreB
}

// Lower renders the grade in lowercase, the way raw product dumps carry it.
func (e EcoScore) Lower() string {
	return strings.ToLower(string(e))
}

// ParseEcoScore accepts a single letter in any case; anything else is missing.
func ParseEcoScore(s string) EcoScore {
	e := EcoScore(strings.ToUpper(strings.TrimSpace(s)))
	if e.Valid() {
		return e
	}
	return EcoScoreMissing
}

// Item is one classified product record. Immutable once built.
type Item struct {
	Name          string
	Category      string
	EcoScore      EcoScore
	EcoSignal     bool
	OrganicLabel  bool
	LanguageMatch bool
	GreenWords    bool
	Cell          Cell

	// raw tags kept for audit
	LabelsTags    string
	LanguagesTags string
	CountriesTags string
}

// Cell identifies one cross of eco signal and organic label.
type Cell string

const (
	CellEcoLabel      Cell = "A_label"
	CellEcoNoLabel    Cell = "A_nolabel"
	CellNonEcoLabel   Cell = "NA_label"
	CellNonEcoNoLabel Cell = "NA_nolabel"
	CellNone          Cell = ""
)

// Cells is the canonical cell order, (organic_label, eco_signal) ascending:
// (0,0), (0,1), (1,0), (1,1). Seed derivation depends on this order.
var Cells = []Cell{CellNonEcoNoLabel, CellEcoNoLabel, CellNonEcoLabel, CellEcoLabel}

// CellFor maps the two signals onto their cell.
func CellFor(ecoSignal, organicLabel bool) Cell {
	switch {
	case ecoSignal && organicLabel:
		return CellEcoLabel
	case ecoSignal:
		return CellEcoNoLabel
	case organicLabel:
		return CellNonEcoLabel
	default:
		return CellNonEcoNoLabel
	}
}

// Index returns the position of c in Cells, or -1.
func (c Cell) Index() int {
	for i, known := range Cells {
		if known == c {
			return i
		}
	}
	return -1
}

func (c Cell) Valid() bool { return c.Index() >= 0 }

func (c Cell) EcoSignal() bool { return c == CellEcoLabel || c == CellEcoNoLabel }

func (c Cell) OrganicLabel() bool { return c == CellEcoLabel || c == CellNonEcoLabel }

// Pair renders the cell as "(organic_label, eco_signal)" for messages.
func (c Cell) Pair() string {
	return "(" + boolDigit(c.OrganicLabel()) + ", " + boolDigit(c.EcoSignal()) + ")"
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
