package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ecostim/adapters/excel"
	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/run"
	"ecostim/internal/classify"
	"ecostim/internal/config"
	"ecostim/internal/ingest"
	"ecostim/internal/pools"
	"ecostim/internal/sampling"
	"ecostim/internal/signals"
	"ecostim/internal/testkit"
)

func newCleanCmd() *cobra.Command {
	var in, out string
	var maxPages int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Filter a raw product dump to the Danish market",
		Long: `Reads a raw products dump (CSV, TSV, gzip TSV, XLSX or JSONL), keeps rows sold in
Denmark, coalesces product names and normalizes tag fields.

Use --in off:denmark to page the public products search API instead of a file.

Example: ecostim clean --in en.openfoodfacts.org.products.csv.gz --out products_dk.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runClean(cmd.Context(), a, in, a.dataPath(out), maxPages)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Raw products dump, or off:<country>")
	cmd.Flags().StringVar(&out, "out", "products_dk.csv", "Cleaned output file")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Page cap when reading from the API")
	cmd.MarkFlagRequired("in")
	return cmd
}

func runClean(ctx context.Context, a *app, in, out string, maxPages int) error {
	var rows []product.RawAttributes
	st, err := ingest.NewCleaner(a.Logger).Clean(ctx, a.openSource(in, maxPages), func(row product.RawAttributes) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cleaning %s: %w", in, err)
	}
	if err := excel.NewDataWriter(out).WriteRows(ctx, ingest.KeepColumns, rows); err != nil {
		return err
	}
	fmt.Printf("raw rows: %d\nkept (dk, named): %d\ndropped not dk: %d\ndropped empty name: %d\nwrote %s\n",
		st.Raw, st.Kept, st.NotDK, st.EmptyName, out)
	return nil
}

func newFlagsCmd() *cobra.Command {
	var in, out, fallback string

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Derive eco, label, language and category signals per product",
		Long: `Derives eco_score, eco_signal, organic_badge, lang_da, green_words and category
for every cleaned product.

--fallback controls numeric eco score binning: whole-set (only when no row has a
grade), per-item, or none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			mode, err := parseFallback(fallback)
			if err != nil {
				return err
			}
			return runFlags(cmd.Context(), a, a.dataPath(in), a.dataPath(out), mode)
		},
	}

	cmd.Flags().StringVar(&in, "in", "products_dk.csv", "Cleaned products file")
	cmd.Flags().StringVar(&out, "out", "products_flags.csv", "Flags output file")
	cmd.Flags().StringVar(&fallback, "fallback", "whole-set", "Numeric score fallback: whole-set|per-item|none")
	return cmd
}

func parseFallback(s string) (signals.FallbackMode, error) {
	switch s {
	case "whole-set":
		return signals.FallbackWholeSet, nil
	case "per-item":
		return signals.FallbackPerItem, nil
	case "none":
		return signals.FallbackNone, nil
	}
	return 0, fmt.Errorf("unknown fallback %q (use whole-set, per-item or none)", s)
}

func runFlags(ctx context.Context, a *app, in, out string, mode signals.FallbackMode) error {
	table, err := excel.NewDataReader(in, a.Logger).ReadData(ctx)
	if err != nil {
		return err
	}
	items := signals.NewDeriver(mode).DeriveAll(table.Rows)
	a.Logger.Info("[flags] derived %d of %d rows", len(items), len(table.Rows))

	rows := make([]product.RawAttributes, len(items))
	for i, it := range items {
		rows[i] = ingest.FlagRow(it)
	}
	if err := excel.NewDataWriter(out).WriteRows(ctx, ingest.FlagColumns, rows); err != nil {
		return err
	}

	sum := ingest.Summarize(items, 20)
	printCounts("eco_score", sum.EcoScore)
	printCounts("eco_signal", sum.EcoSignal)
	printCounts("organic_badge", sum.OrganicBadge)
	printCounts("lang_da", sum.LangDA)
	printCounts("green_words", sum.GreenWords)
	printCounts("top categories", sum.TopCategories)
	fmt.Printf("wrote %s (%d rows)\n", out, sum.Rows)
	return nil
}

func printCounts(title string, counts []ingest.ValueCount) {
	fmt.Printf("\n%s:\n", title)
	for _, c := range counts {
		fmt.Printf("  %-40s %d\n", c.Value, c.Count)
	}
}

// readFlagItems loads a flags file and classifies the Danish, graded rows.
func readFlagItems(ctx context.Context, a *app, in string) ([]product.Item, error) {
	var items []product.Item
	err := excel.NewDataReader(in, a.Logger).Each(ctx, func(row product.RawAttributes) error {
		it, err := ingest.ItemFromFlagRow(row)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading flags %s: %w", in, err)
	}
	danish := classify.DanishOnly(items)
	classified, st := classify.Classify(danish)
	a.Logger.Info("[classify] %d rows, %d danish, %d classified, %d dropped", len(items), len(danish), len(classified), st.Dropped)
	for _, c := range product.Cells {
		a.Logger.Debug("[classify] %s %s: %d", c, c.Pair(), st.Kept[c])
	}
	return classified, nil
}

func newStimuliCmd() *cobra.Command {
	var in, out string
	var perCell int
	var seed int64
	var noStore bool

	cmd := &cobra.Command{
		Use:   "stimuli",
		Short: "Build the balanced single-item stimulus set",
		Long: `Samples per_cell items from each organic_badge x eco_signal cell, balances
salience within cells and numbers the shuffled set 1..N.

Fails without writing anything when a cell cannot meet the quota.

Example: ecostim stimuli --per-cell 60 --seed 637`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("seed") {
				a.Config.Design.Seed = seed
			}
			if cmd.Flags().Changed("per-cell") {
				a.Config.Design.PerCell = perCell
			}
			return runStimuli(cmd.Context(), a, a.dataPath(in), a.dataPath(out), !noStore)
		},
	}

	cmd.Flags().StringVar(&in, "in", "products_flags.csv", "Flags file")
	cmd.Flags().StringVar(&out, "out", "stimulus_set.csv", "Stimulus set output (.csv or .xlsx)")
	cmd.Flags().IntVar(&perCell, "per-cell", 0, "Items per cell (default target_total/4)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip recording the run in the store")
	return cmd
}

func runStimuli(ctx context.Context, a *app, in, out string, record bool) error {
	d := a.Config.Design
	items, err := readFlagItems(ctx, a, in)
	if err != nil {
		return err
	}
	perCell := d.PerCellTarget()
	stims, err := sampling.BuildStimuli(items, sampling.StimulusParams{PerCell: perCell, Seed: d.Seed})
	if err != nil {
		return err
	}

	overrides, err := config.LoadNameOverrides(a.Config.Paths.NameOverrides)
	if err != nil {
		return err
	}
	if n := sampling.ApplyNameOverrides(stims, overrides); n > 0 {
		a.Logger.Info("[stimuli] applied %d name overrides", n)
	}

	if err := excel.NewDataWriter(out).WriteStimuli(ctx, stims); err != nil {
		return err
	}

	m := run.NewManifest(run.KindStimuli, d.Seed, map[string]interface{}{"per_cell": perCell}, perCell*len(product.Cells))
	m.Built = len(stims)
	if err := finishManifest(m, in, out); err != nil {
		return err
	}
	if record {
		if err := a.OpenStore(ctx); err != nil {
			return err
		}
		if err := a.Runs.SaveRun(ctx, *m); err != nil {
			return err
		}
		if err := a.Stimuli.SaveStimuli(ctx, m.RunID, stims); err != nil {
			return err
		}
	}
	a.Logger.Info("[stimuli] run %s: %d stimuli, output %s", m.RunID, len(stims), m.OutputHash.Short())
	fmt.Printf("wrote %s (%d stimuli, run %s)\n", out, len(stims), m.RunID)
	return nil
}

func newTrialsCmd() *cobra.Command {
	var in, out string
	var nTrials, maxRepeats int
	var seed int64
	var noStore bool

	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Build the paired left/right comparison trials",
		Long: `Builds n_trials comparisons across congruence x salience x left/right cells,
drawing both sides from a shared category when possible and capping how often
a product name repeats.

Unfillable slots are reported as a shortfall, not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("seed") {
				a.Config.Design.Seed = seed
			}
			if cmd.Flags().Changed("n-trials") {
				a.Config.Design.NTrials = nTrials
			}
			if cmd.Flags().Changed("max-repeats") {
				a.Config.Design.MaxRepeats = maxRepeats
			}
			return runTrials(cmd.Context(), a, a.dataPath(in), a.dataPath(out), !noStore)
		},
	}

	cmd.Flags().StringVar(&in, "in", "products_flags.csv", "Flags file")
	cmd.Flags().StringVar(&out, "out", "trials.csv", "Trial output (.csv or .xlsx)")
	cmd.Flags().IntVar(&nTrials, "n-trials", 0, "Number of trials (default from config)")
	cmd.Flags().IntVar(&maxRepeats, "max-repeats", 0, "Max uses per product name (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Skip recording the run in the store")
	return cmd
}

func runTrials(ctx context.Context, a *app, in, out string, record bool) error {
	d := a.Config.Design
	items, err := readFlagItems(ctx, a, in)
	if err != nil {
		return err
	}
	p := pools.Build(items)
	for cell, n := range p.Sizes() {
		a.Logger.Debug("[trials] pool %s: %d items", cell, n)
	}

	set, err := sampling.BuildTrials(p, sampling.TrialParams{NTrials: d.NTrials, MaxRepeats: d.MaxRepeats, Seed: d.Seed}, nil)
	if err != nil {
		return err
	}
	if !set.Shortfall.Empty() {
		a.Logger.Warn("[trials] %s", set.Shortfall)
	}
	a.Logger.Debug("[trials] %d draws fell back to the global pool", set.GlobalFallbacks)

	if err := excel.NewDataWriter(out).WriteTrials(ctx, set.Trials); err != nil {
		return err
	}

	m := run.NewManifest(run.KindTrials, d.Seed, map[string]interface{}{
		"n_trials":    d.NTrials,
		"max_repeats": d.MaxRepeats,
	}, d.NTrials)
	m.Built = len(set.Trials)
	if err := finishManifest(m, in, out); err != nil {
		return err
	}
	if record {
		if err := a.OpenStore(ctx); err != nil {
			return err
		}
		if err := a.Runs.SaveRun(ctx, *m); err != nil {
			return err
		}
	}
	fmt.Printf("wrote %s (%d/%d trials, max name use %d, run %s)\n", out, len(set.Trials), d.NTrials, set.Usage.Max(), m.RunID)
	return nil
}

// finishManifest hashes input and output and writes <out>.manifest.json.
func finishManifest(m *run.Manifest, in, out string) error {
	inData, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	outData, err := os.ReadFile(out)
	if err != nil {
		return err
	}
	m.InputHash = core.NewHash(inData)
	m.OutputHash = core.NewHash(outData)
	if err := m.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out+".manifest.json", b, 0o644)
}

func newSeedCmd() *cobra.Command {
	var out string
	var perCell int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic flags file for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			return generateSeedData(cmd.Context(), a.dataPath(out), perCell, seed)
		},
	}

	cmd.Flags().StringVar(&out, "out", "products_flags.csv", "Flags output file")
	cmd.Flags().IntVar(&perCell, "per-cell", 0, "Items per cell (default: realistic uneven catalogue)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Generator seed")
	return cmd
}

func generateSeedData(ctx context.Context, out string, perCell int, seed int64) error {
	cfg := testkit.DefaultCatalogConfig()
	cfg.Seed = seed
	if perCell > 0 {
		cfg = testkit.Uniform(perCell, seed)
	}
	items := testkit.NewCatalogGenerator(cfg).Items()
	rows := make([]product.RawAttributes, len(items))
	for i, it := range items {
		rows[i] = ingest.FlagRow(it)
	}
	if err := excel.NewDataWriter(out).WriteRows(ctx, ingest.FlagColumns, rows); err != nil {
		return err
	}
	fmt.Printf("wrote %d synthetic products to %s\n", len(items), filepath.Clean(out))
	return nil
}
