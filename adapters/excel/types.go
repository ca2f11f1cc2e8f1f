package excel

import "ecostim/domain/product"

// TableData represents a complete tabular file held in memory
type TableData struct {
	Headers []string               // Column headers
	Rows    []product.RawAttributes // Data rows
}

// Column returns every value of one column in row order.
func (t *TableData) Column(name string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Get(name)
	}
	return out
}

// HasColumn reports whether the header contains name.
func (t *TableData) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Stimulus and trial artifact columns, in file order.
var (
	StimulusColumns = []string{
		"item_id", "product_name", "organic_badge", "salience", "eco_signal",
		"eco_score", "lang_da", "green_words", "category",
		"labels_tags", "languages_tags", "countries_tags",
	}

	// RequiredStimulusColumns must be present for a stimulus file to load.
	RequiredStimulusColumns = StimulusColumns[:9]

	TrialColumns = []string{
		"trial_id", "congruent", "left_is_A", "salience",
		"left_name", "left_category", "left_label", "left_sustainable",
		"right_name", "right_category", "right_label", "right_sustainable",
	}

	ResponseExtraColumns = []string{
		"rating", "rt", "block_shown", "participant", "age", "gender", "diet", "consent",
	}
)
