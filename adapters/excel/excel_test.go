package excel

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal/sampling"
	"ecostim/internal/testkit"
)

func buildStimuli(t *testing.T, seed int64) []stimulus.Stimulus {
	t.Helper()
	items := testkit.NewCatalogGenerator(testkit.DefaultCatalogConfig()).Items()
	stims, err := sampling.BuildStimuli(items, sampling.StimulusParams{PerCell: 60, Seed: seed})
	require.NoError(t, err)
	return stims
}

func TestWriteStimuli_ByteIdenticalForSameSeed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")

	require.NoError(t, NewDataWriter(a).WriteStimuli(ctx, buildStimuli(t, 637)))
	require.NoError(t, NewDataWriter(b).WriteStimuli(ctx, buildStimuli(t, 637)))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.True(t, strings.HasPrefix(string(da), utf8BOM+"item_id,product_name,"))
}

func TestStimuliRoundTrip_CSV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stimulus_set.csv")
	stims := buildStimuli(t, 1)
	require.NoError(t, NewDataWriter(path).WriteStimuli(ctx, stims))

	got, err := NewDataReader(path, nil).ReadStimuli(ctx)
	require.NoError(t, err)
	assert.Equal(t, stims, got)
}

func TestStimuliRoundTrip_XLSX(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stimulus_set.xlsx")
	stims := buildStimuli(t, 2)[:20]
	require.NoError(t, NewDataWriter(path).WriteStimuli(ctx, stims))

	got, err := NewDataReader(path, nil).ReadStimuli(ctx)
	require.NoError(t, err)
	assert.Equal(t, stims, got)
}

func TestWriteStimuli_UppercaseGrade(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stimulus_set.csv")
	require.NoError(t, NewDataWriter(path).WriteStimuli(ctx, buildStimuli(t, 3)))

	data, err := NewDataReader(path, nil).ReadData(ctx)
	require.NoError(t, err)
	for _, g := range data.Column("eco_score") {
		assert.Contains(t, []string{"A", "B", "C", "D", "E"}, g)
	}
}

func TestTrialsRoundTrip_CSV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trials.csv")
	trials := []stimulus.Trial{
		{
			TrialID: 1, Congruent: true, LeftIsA: true, Salience: stimulus.SalienceHigh,
			Left:  stimulus.ItemSummary{Name: "Økologisk skyr", Category: "en:dairies", Label: true, Sustainable: true},
			Right: stimulus.ItemSummary{Name: "Chips, salted", Category: "en:snacks"},
		},
		{
			TrialID: 2, Salience: stimulus.SalienceLow,
			Left:  stimulus.ItemSummary{Name: "Rugbrød", Category: "en:breads", Label: true},
			Right: stimulus.ItemSummary{Name: "Havregryn", Category: "en:breads", Sustainable: true},
		},
	}
	require.NoError(t, NewDataWriter(path).WriteTrials(ctx, trials))

	got, err := NewDataReader(path, nil).ReadTrials(ctx)
	require.NoError(t, err)
	assert.Equal(t, trials, got)
}

func TestReadTrials_RejectsStimulusFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stimulus_set.csv")
	require.NoError(t, NewDataWriter(path).WriteStimuli(ctx, buildStimuli(t, 4)[:4]))

	_, err := NewDataReader(path, nil).ReadTrials(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trial_id")
}

func TestReadStimuli_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("item_id,product_name\n1,Skyr\n"), 0o644))

	_, err := NewDataReader(path, nil).ReadStimuli(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salience")
}

func TestEach_GzipTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("product_name\tcountries_tags\tecoscore_grade\nSkyr \"naturel\"\ten:denmark\ta\nBrie\ten:france\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	r := NewDataReader(path, nil)
	assert.Equal(t, "tsv", r.fileType)

	var rows []product.RawAttributes
	require.NoError(t, r.Each(context.Background(), func(row product.RawAttributes) error {
		rows = append(rows, row)
		return nil
	}))
	require.Len(t, rows, 2)
	assert.Equal(t, `Skyr "naturel"`, rows[0].Get(product.ColProductName))
	assert.Equal(t, "a", rows[0].Get(product.ColEcoscoreGrade))
	assert.False(t, rows[1].Has(product.ColEcoscoreGrade))
}

func TestEach_MissingFile(t *testing.T) {
	err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv"), nil).Each(context.Background(), func(product.RawAttributes) error { return nil })
	assert.Error(t, err)
}

func TestWriteResponses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "anon_20260101-120000.csv")
	age := 31
	p := stimulus.Participant{ID: "p01", Age: &age, Gender: "k", Diet: "vegetar", Consent: true}
	resp := []stimulus.Response{{
		Stimulus:   stimulus.Stimulus{ItemID: 3, Name: "Skyr", Salience: stimulus.SalienceHigh, EcoScore: product.EcoScoreA, EcoSignal: true},
		Rating:     6,
		BlockShown: 2,
	}}
	require.NoError(t, NewDataWriter(path).WriteResponses(ctx, resp, p))

	data, err := NewDataReader(path, nil).ReadData(ctx)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.True(t, data.HasColumn("rating"))
	assert.Equal(t, "6", data.Rows[0].Get("rating"))
	assert.Equal(t, "p01", data.Rows[0].Get("participant"))
	assert.Equal(t, "31", data.Rows[0].Get("age"))
	assert.Equal(t, "A", data.Rows[0].Get("eco_score"))

	got, who, err := ParseResponse(data.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, "p01", who)
	assert.Equal(t, resp[0], got)
}

func TestParseBit(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "0": false, "1.0": true, " 0.0 ": false} {
		got, err := ParseBit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBit("2")
	assert.Error(t, err)
}
