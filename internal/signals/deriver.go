// Package signals turns raw product attribute strings into the experimental
// signals: eco grade, eco signal, organic label, Danish language match,
// display name and category.
package signals

import (
	"regexp"
	"strconv"
	"strings"

	"ecostim/domain/product"
)

// FallbackMode controls when the numeric eco score is binned into a grade.
type FallbackMode int

const (
	// FallbackWholeSet bins numeric scores only when no row in the batch has a usable grade.
	FallbackWholeSet FallbackMode = iota
	// FallbackPerItem bins the numeric score of any row whose grade fields are blank.
	FallbackPerItem
	FallbackNone
)

var (
	organicPattern = regexp.MustCompile(`(?i)(?:^|[,;:\s])(?:` +
		`en:organic|da:økologisk|da:okologisk|da:oekologisk|` +
		`organic|økologisk|okologisk|oekologisk|` +
		`bio|biologique|ecologico|ecológico|ökologisch|öko` +
		`)(?:$|[,;:\s])`)

	danishTagPattern = regexp.MustCompile(`(?:^|[,;:])da(?:$|[,;:])`)
	danishChars      = regexp.MustCompile(`[æøåÆØÅ]`)

	greenPattern = regexp.MustCompile(`(?i)(?:økologisk|økologi|organic|bio|plante|plant[-\s]?based|` +
		`vegansk|vegan|vegetar|bæredygtig|klima|eco|green|natural)`)

	langPrefix = regexp.MustCompile(`^[a-z]{2}:`)
)

// danishWords are unambiguous Danish words matched against lowercased names.
var danishWords = []string{
	"økologisk", "økologi", "økonomi", "danske", "dansk", "skyr", "rugbrød", "kartofler",
	"havre", "smør", "rød", "grød", "pålæg", "remoulade", "rug", "knækbrød",
}

// scoreBin maps (Lower, Upper] onto a grade.
type scoreBin struct {
	Lower, Upper float64
	Grade        product.EcoScore
}

// numericBins is a fixed external table; boundaries are reproduced, not re-derived.
var numericBins = []scoreBin{
	{-1000, 19, product.EcoScoreE},
	{19, 39, product.EcoScoreD},
	{39, 59, product.EcoScoreC},
	{59, 79, product.EcoScoreB},
	{79, 1000, product.EcoScoreA},
}

// Deriver computes signals for raw rows.
type Deriver struct {
	Fallback FallbackMode
}

func NewDeriver(fallback FallbackMode) *Deriver {
	return &Deriver{Fallback: fallback}
}

// DeriveItem builds an unclassified Item from one raw row. ok is false when
// the row has no usable display name.
func (d *Deriver) DeriveItem(raw product.RawAttributes) (product.Item, bool) {
	grade := GradeFromFields(raw)
	if grade.IsMissing() && d.Fallback == FallbackPerItem {
		grade = GradeFromScore(raw.Get(product.ColEcoscoreScore))
	}
	return buildItem(raw, grade)
}

// DeriveAll derives every row, dropping rows without a display name. Under
// FallbackWholeSet the numeric score is used only if no row yields a grade.
func (d *Deriver) DeriveAll(rows []product.RawAttributes) []product.Item {
	grades := make([]product.EcoScore, len(rows))
	anyGrade := false
	for i, raw := range rows {
		grades[i] = GradeFromFields(raw)
		if grades[i].IsMissing() && d.Fallback == FallbackPerItem {
			grades[i] = GradeFromScore(raw.Get(product.ColEcoscoreScore))
		}
		if grades[i].Valid() {
			anyGrade = true
		}
	}
	if !anyGrade && d.Fallback == FallbackWholeSet {
		for i, raw := range rows {
			grades[i] = GradeFromScore(raw.Get(product.ColEcoscoreScore))
		}
	}

	items := make([]product.Item, 0, len(rows))
	for i, raw := range rows {
		if it, ok := buildItem(raw, grades[i]); ok {
			items = append(items, it)
		}
	}
	return items
}

func buildItem(raw product.RawAttributes, grade product.EcoScore) (product.Item, bool) {
	name := DisplayName(raw)
	if name == "" {
		return product.Item{}, false
	}
	return product.Item{
		Name:          name,
		Category:      Category(raw),
		EcoScore:      grade,
		EcoSignal:     EcoSignal(grade),
		OrganicLabel:  OrganicLabel(raw.Get(product.ColLabelsTags)),
		LanguageMatch: LanguageMatch(raw),
		GreenWords:    GreenWords(name),
		LabelsTags:    strings.ToLower(Clean(raw.Get(product.ColLabelsTags))),
		LanguagesTags: strings.ToLower(Clean(raw.Get(product.ColLanguagesTags))),
		CountriesTags: strings.ToLower(Clean(raw.Get(product.ColCountriesTags))),
	}, true
}

// Clean trims s and treats the literal "nan" as empty.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// FirstNonEmpty returns the first value that is non-empty after Clean.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := Clean(v); s != "" {
			return s
		}
	}
	return ""
}

// GradeFromFields prefers the primary grade, then the environmental grade.
func GradeFromFields(raw product.RawAttributes) product.EcoScore {
	v := FirstNonEmpty(raw.Get(product.ColEcoscoreGrade), raw.Get(product.ColEnvironmentalGrade))
	return NormalizeGrade(v)
}

// NormalizeGrade maps junk to missing and "a-plus" to A.
func NormalizeGrade(v string) product.EcoScore {
	v = strings.ToLower(Clean(v))
	switch v {
	case "", "unknown", "not-applicable":
		return product.EcoScoreMissing
	case "a-plus":
		v = "a"
	}
	if len(v) != 1 {
		return product.EcoScoreMissing
	}
	return product.ParseEcoScore(v)
}

// GradeFromScore bins a numeric score; unparsable or out-of-range values are missing.
func GradeFromScore(v string) product.EcoScore {
	v = Clean(v)
	if v == "" {
		return product.EcoScoreMissing
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return product.EcoScoreMissing
	}
	for _, b := range numericBins {
		if f > b.Lower && f <= b.Upper {
			return b.Grade
		}
	}
	return product.EcoScoreMissing
}

// EcoSignal is true for the top two grades.
func EcoSignal(grade product.EcoScore) bool {
	return grade.Good()
}

// OrganicLabel matches organic indicators as whole delimited tag tokens.
func OrganicLabel(labelsTags string) bool {
	s := strings.ToLower(Clean(labelsTags))
	if s == "" {
		return false
	}
	return organicPattern.MatchString(s)
}

// LooksDanish checks a name for Danish letters or stoplist words.
func LooksDanish(name string) bool {
	s := strings.TrimSpace(name)
	if s == "" {
		return false
	}
	if danishChars.MatchString(s) {
		return true
	}
	low := strings.ToLower(s)
	for _, w := range danishWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

// LanguageMatch reports Danish evidence from tags, locale, the Danish name
// field, or the names themselves.
func LanguageMatch(raw product.RawAttributes) bool {
	langs := strings.ToLower(Clean(raw.Get(product.ColLanguagesTags)))
	if langs != "" && danishTagPattern.MatchString(langs) {
		return true
	}
	if strings.ToLower(Clean(raw.Get(product.ColLC))) == "da" {
		return true
	}
	nameDA := Clean(raw.Get(product.ColProductNameDA))
	if nameDA != "" {
		return true
	}
	return LooksDanish(Clean(raw.Get(product.ColProductName)))
}

// DisplayName prefers the Danish name over the generic one.
func DisplayName(raw product.RawAttributes) string {
	return FirstNonEmpty(raw.Get(product.ColProductNameDA), raw.Get(product.ColProductName))
}

// GreenWords flags names that use sustainability vocabulary.
func GreenWords(name string) bool {
	return greenPattern.MatchString(name)
}

// Category resolves main_category_en, main_category, then the first
// categories_tags entry without its language prefix.
func Category(raw product.RawAttributes) string {
	if c := FirstNonEmpty(raw.Get(product.ColMainCategoryEN), raw.Get(product.ColMainCategory)); c != "" {
		return c
	}
	tags := strings.ToLower(Clean(raw.Get(product.ColCategoriesTags)))
	if tags != "" {
		first := strings.TrimSpace(strings.SplitN(tags, ",", 2)[0])
		first = langPrefix.ReplaceAllString(first, "")
		if first != "" {
			return first
		}
	}
	return product.UnknownCategory
}
