// Package ingest prepares raw product dumps for the signal pipeline.
package ingest

import (
	"context"
	"regexp"
	"strings"

	"ecostim/domain/product"
	"ecostim/internal"
	"ecostim/internal/signals"
	"ecostim/ports"
)

// KeepColumns are the columns a cleaned file carries, in file order.
var KeepColumns = []string{
	product.ColProductName,
	product.ColProductNameDA,
	product.ColBrands,
	product.ColCategoriesTags,
	product.ColMainCategory,
	product.ColMainCategoryEN,
	product.ColLabelsTags,
	product.ColLanguagesTags,
	product.ColCountriesTags,
	product.ColLC,
	product.ColEcoscoreGrade,
	product.ColEnvironmentalGrade,
	product.ColEcoscoreScore,
}

var (
	dkToken = regexp.MustCompile(`(?:^|,)\s*dk\s*(?:,|$)`)

	lowerColumns = []string{
		product.ColLabelsTags, product.ColLanguagesTags, product.ColCountriesTags,
		product.ColCategoriesTags, product.ColLC,
	}
)

// LooksDK reports whether a lowercased countries_tags value points at Denmark.
func LooksDK(countries string) bool {
	s := strings.ToLower(countries)
	return dkToken.MatchString(s) || strings.Contains(s, "denmark")
}

// Stats counts what a cleaning pass kept and dropped.
type Stats struct {
	Raw       int `json:"raw"`
	Kept      int `json:"kept"`
	NotDK     int `json:"not_dk"`
	EmptyName int `json:"empty_name"`
}

// CleanRow normalizes one raw row. ok is false when the row is outside the
// Danish market or has no name after coalescing.
func CleanRow(raw product.RawAttributes) (product.RawAttributes, bool, string) {
	out := make(product.RawAttributes, len(KeepColumns))
	for _, col := range KeepColumns {
		out[col] = signals.Clean(raw.Get(col))
	}
	for _, col := range lowerColumns {
		out[col] = strings.ToLower(out[col])
	}
	out[product.ColProductName] = signals.FirstNonEmpty(
		raw.Get(product.ColProductName),
		raw.Get(product.ColProductNameDA),
		raw.Get(product.ColProductNameEN),
	)
	if !raw.Has(product.ColMainCategoryEN) {
		out[product.ColMainCategoryEN] = out[product.ColMainCategory]
	}

	if !LooksDK(out[product.ColCountriesTags]) {
		return nil, false, "not_dk"
	}
	if out[product.ColProductName] == "" {
		return nil, false, "empty_name"
	}
	return out, true, ""
}

// Cleaner streams a source through CleanRow
type Cleaner struct {
	logger *internal.Logger
}

func NewCleaner(logger *internal.Logger) *Cleaner {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Cleaner{logger: logger}
}

// Clean passes every kept row to emit and returns the counts.
func (c *Cleaner) Clean(ctx context.Context, src ports.RowSource, emit func(product.RawAttributes) error) (Stats, error) {
	var st Stats
	err := src.Each(ctx, func(raw product.RawAttributes) error {
		st.Raw++
		row, ok, reason := CleanRow(raw)
		if !ok {
			switch reason {
			case "not_dk":
				st.NotDK++
			case "empty_name":
				st.EmptyName++
			}
			return nil
		}
		st.Kept++
		if st.Raw%200000 == 0 {
			c.logger.Debug("[clean] %d rows read, %d kept", st.Raw, st.Kept)
		}
		return emit(row)
	})
	if err != nil {
		return st, err
	}
	c.logger.Info("[clean] raw=%d kept=%d not_dk=%d empty_name=%d", st.Raw, st.Kept, st.NotDK, st.EmptyName)
	return st, nil
}
