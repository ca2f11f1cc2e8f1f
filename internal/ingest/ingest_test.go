package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/product"
	"ecostim/internal/testkit"
)

type sliceSource []product.RawAttributes

func (s sliceSource) Each(ctx context.Context, fn func(product.RawAttributes) error) error {
	for _, r := range s {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func TestLooksDK(t *testing.T) {
	cases := map[string]bool{
		"en:denmark":             true,
		"da:denmark,en:sweden":   true,
		"en:sweden, dk":          true,
		"DK":                     true,
		"en:france":              false,
		"en:dkk-region":          false,
		"":                       false,
	}
	for in, want := range cases {
		assert.Equal(t, want, LooksDK(in), in)
	}
}

func TestCleanRow(t *testing.T) {
	row, ok, _ := CleanRow(product.RawAttributes{
		product.ColProductName:   "nan",
		product.ColProductNameDA: "  Rugbrød ",
		product.ColCountriesTags: "EN:Denmark",
		product.ColLabelsTags:    "EN:Organic",
		product.ColMainCategory:  "breads",
	})
	require.True(t, ok)
	assert.Equal(t, "Rugbrød", row[product.ColProductName])
	assert.Equal(t, "en:organic", row[product.ColLabelsTags])
	assert.Equal(t, "breads", row[product.ColMainCategoryEN])

	_, ok, reason := CleanRow(product.RawAttributes{product.ColCountriesTags: "en:denmark"})
	assert.False(t, ok)
	assert.Equal(t, "empty_name", reason)

	_, ok, reason = CleanRow(product.RawAttributes{product.ColProductName: "Brie", product.ColCountriesTags: "en:france"})
	assert.False(t, ok)
	assert.Equal(t, "not_dk", reason)
}

func TestCleanRow_KeepsExplicitMainCategoryEN(t *testing.T) {
	row, ok, _ := CleanRow(product.RawAttributes{
		product.ColProductName:    "Skyr",
		product.ColCountriesTags:  "en:denmark",
		product.ColMainCategory:   "mejeri",
		product.ColMainCategoryEN: "",
	})
	require.True(t, ok)
	assert.Equal(t, "", row[product.ColMainCategoryEN])
}

func TestCleaner_Stats(t *testing.T) {
	rows := testkit.NewCatalogGenerator(testkit.Uniform(5, 1)).RawRows(7)
	var kept []product.RawAttributes
	st, err := NewCleaner(nil).Clean(context.Background(), sliceSource(rows), func(r product.RawAttributes) error {
		kept = append(kept, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Raw: 27, Kept: 20, NotDK: 7}, st)
	assert.Len(t, kept, 20)
}

func TestFlagRowRoundTrip(t *testing.T) {
	it := product.Item{
		Name: "Økomælk", Category: "dairies", EcoScore: product.EcoScoreB, EcoSignal: true,
		OrganicLabel: true, LanguageMatch: true, GreenWords: true, LabelsTags: "en:organic",
	}
	got, err := ItemFromFlagRow(FlagRow(it))
	require.NoError(t, err)
	assert.Equal(t, it, got)
}

func TestItemFromFlagRow_RecomputesEcoSignal(t *testing.T) {
	got, err := ItemFromFlagRow(product.RawAttributes{
		product.ColProductName: "Chips", ColEcoScore: "d", ColEcoSignal: "1",
	})
	require.NoError(t, err)
	assert.False(t, got.EcoSignal)
	assert.Equal(t, product.UnknownCategory, got.Category)

	_, err = ItemFromFlagRow(product.RawAttributes{ColOrganicBadge: "yes"})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	items := []product.Item{
		{Category: "a", EcoScore: product.EcoScoreA, EcoSignal: true},
		{Category: "a", EcoScore: product.EcoScoreD},
		{Category: "b"},
	}
	s := Summarize(items, 1)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, []ValueCount{{Value: "a", Count: 2}}, s.TopCategories)
	assert.Equal(t, ValueCount{Value: "0", Count: 2}, s.EcoSignal[0])
	assert.Contains(t, s.EcoScore, ValueCount{Value: "<missing>", Count: 1})
}
