package ingest

import (
	"fmt"
	"sort"
	"strconv"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
)

// Flag file columns beyond the raw tag fields.
const (
	ColEcoScore     = "eco_score"
	ColEcoSignal    = "eco_signal"
	ColOrganicBadge = "organic_badge"
	ColLangDA       = "lang_da"
	ColGreenWords   = "green_words"
	ColCategory     = "category"
)

// FlagColumns is the layout of an engineered flags file.
var FlagColumns = []string{
	product.ColProductName, ColEcoScore, ColEcoSignal, ColOrganicBadge, ColLangDA,
	ColGreenWords, ColCategory, product.ColLabelsTags, product.ColLanguagesTags, product.ColCountriesTags,
}

func bit(b bool) string { return strconv.Itoa(stimulus.Bit(b)) }

// FlagRow renders a derived item as a flags row.
func FlagRow(it product.Item) product.RawAttributes {
	return product.RawAttributes{
		product.ColProductName:   it.Name,
		ColEcoScore:              string(it.EcoScore),
		ColEcoSignal:             bit(it.EcoSignal),
		ColOrganicBadge:          bit(it.OrganicLabel),
		ColLangDA:                bit(it.LanguageMatch),
		ColGreenWords:            bit(it.GreenWords),
		ColCategory:              it.Category,
		product.ColLabelsTags:    it.LabelsTags,
		product.ColLanguagesTags: it.LanguagesTags,
		product.ColCountriesTags: it.CountriesTags,
	}
}

// ItemFromFlagRow reads a flags row back. eco_signal is recomputed from
// eco_score so the two can never disagree.
func ItemFromFlagRow(row product.RawAttributes) (product.Item, error) {
	parse := func(col string) (bool, error) {
		switch row.Get(col) {
		case "1", "1.0", "true":
			return true, nil
		case "0", "0.0", "false", "":
			return false, nil
		}
		return false, fmt.Errorf("%s: value %q is not 0/1", col, row.Get(col))
	}
	organic, err := parse(ColOrganicBadge)
	if err != nil {
		return product.Item{}, err
	}
	lang, err := parse(ColLangDA)
	if err != nil {
		return product.Item{}, err
	}
	green, err := parse(ColGreenWords)
	if err != nil {
		return product.Item{}, err
	}
	grade := product.ParseEcoScore(row.Get(ColEcoScore))
	cat := row.Get(ColCategory)
	if cat == "" {
		cat = product.UnknownCategory
	}
	return product.Item{
		Name:          row.Get(product.ColProductName),
		Category:      cat,
		EcoScore:      grade,
		EcoSignal:     grade.Good(),
		OrganicLabel:  organic,
		LanguageMatch: lang,
		GreenWords:    green,
		LabelsTags:    row.Get(product.ColLabelsTags),
		LanguagesTags: row.Get(product.ColLanguagesTags),
		CountriesTags: row.Get(product.ColCountriesTags),
	}, nil
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FlagSummary holds the value counts printed after flag engineering.
type FlagSummary struct {
	Rows          int          `json:"rows"`
	EcoScore      []ValueCount `json:"eco_score"`
	EcoSignal     []ValueCount `json:"eco_signal"`
	OrganicBadge  []ValueCount `json:"organic_badge"`
	LangDA        []ValueCount `json:"lang_da"`
	GreenWords    []ValueCount `json:"green_words"`
	TopCategories []ValueCount `json:"top_categories"`
}

// Summarize counts flag values; categories are cut to the top n.
func Summarize(items []product.Item, topCategories int) FlagSummary {
	eco, sig, org, lang, green, cat := counter{}, counter{}, counter{}, counter{}, counter{}, counter{}
	for _, it := range items {
		g := string(it.EcoScore)
		if g == "" {
			g = "<missing>"
		}
		eco[g]++
		sig[bit(it.EcoSignal)]++
		org[bit(it.OrganicLabel)]++
		lang[bit(it.LanguageMatch)]++
		green[bit(it.GreenWords)]++
		cat[it.Category]++
	}
	top := cat.sorted()
	if topCategories > 0 && len(top) > topCategories {
		top = top[:topCategories]
	}
	return FlagSummary{
		Rows:          len(items),
		EcoScore:      eco.sorted(),
		EcoSignal:     sig.sorted(),
		OrganicBadge:  org.sorted(),
		LangDA:        lang.sorted(),
		GreenWords:    green.sorted(),
		TopCategories: top,
	}
}

type counter map[string]int

// sorted orders by count descending, then value.
func (c counter) sorted() []ValueCount {
	out := make([]ValueCount, 0, len(c))
	for v, n := range c {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
