package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"ecostim/adapters/excel"
	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/internal/qc"
	"ecostim/internal/report"
)

func newQCCmd() *cobra.Command {
	var in string
	var expected, maxNameDups int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "qc",
		Short: "Quality-check a stimulus set",
		Long: `Checks columns, ids, names, binary flags, salience, eco score consistency and
the 4-cell balance (with a chi-square goodness of fit). Exits non-zero on failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			opts := qcOptions(a)
			if cmd.Flags().Changed("expected") {
				opts.ExpectedRows = expected
			}
			opts.MaxNameDups = maxNameDups
			return runQC(cmd.Context(), a, a.dataPath(in), opts, asJSON)
		},
	}

	cmd.Flags().StringVar(&in, "in", "stimulus_set.csv", "Stimulus set")
	cmd.Flags().IntVar(&expected, "expected", 0, "Expected row count (default 4 x per_cell, 0 skips)")
	cmd.Flags().IntVar(&maxNameDups, "max-name-dups", qc.DefaultOptions().MaxNameDups, "Duplicated product_name rows tolerated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// qcOptions expects one full quota per cell.
func qcOptions(a *app) qc.Options {
	opts := qc.DefaultOptions()
	opts.ExpectedRows = a.Config.Design.PerCellTarget() * len(product.Cells)
	return opts
}

func runQC(ctx context.Context, a *app, in string, opts qc.Options, asJSON bool) error {
	table, err := excel.NewDataReader(in, a.Logger).ReadData(ctx)
	if err != nil {
		return err
	}
	r := qc.NewChecker(opts, a.Logger).Check(table.Headers, table.Rows)
	if asJSON {
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	} else {
		for _, line := range r.Lines() {
			fmt.Println(line)
		}
	}
	return r.Err()
}

func newSummaryCmd() *cobra.Command {
	var runID, htmlOut string

	cmd := &cobra.Command{
		Use:   "summary [response files or directories...]",
		Short: "Summarize ratings per organic_badge x eco_signal x salience cell",
		Long: `Reads archived response files (directories are scanned for *.csv) or, with
--run-id, every stored response of a run, and prints per-cell rating statistics
as a markdown table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if runID == "" && len(args) == 0 {
				args = []string{a.dataPath("responses")}
			}
			return runSummary(cmd.Context(), a, runID, args, htmlOut)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "Summarize stored responses of this run")
	cmd.Flags().StringVar(&htmlOut, "html", "", "Also write an HTML report to this file")
	return cmd
}

func runSummary(ctx context.Context, a *app, runIDStr string, paths []string, htmlOut string) error {
	var rows []report.Participant
	if runIDStr != "" {
		id, err := core.ParseRunID(runIDStr)
		if err != nil {
			return err
		}
		if err := a.OpenStore(ctx); err != nil {
			return err
		}
		responses, err := a.Responses.ListRunResponses(ctx, id)
		if err != nil {
			return err
		}
		for _, r := range responses {
			rows = append(rows, report.Participant{Response: r})
		}
	} else {
		files, err := responseFiles(paths)
		if err != nil {
			return err
		}
		for _, f := range files {
			got, err := readResponses(ctx, a, f)
			if err != nil {
				return err
			}
			rows = append(rows, got...)
		}
		a.Logger.Info("[summary] read %d responses from %d files", len(rows), len(files))
	}

	sum, err := report.Summarize(rows)
	if err != nil {
		return err
	}
	fmt.Print(sum.Markdown())
	if htmlOut != "" {
		if err := os.WriteFile(htmlOut, []byte(sum.HTML()), 0o644); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", htmlOut)
	}
	return nil
}

// responseFiles expands directories into their CSV files, sorted.
func responseFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

func readResponses(ctx context.Context, a *app, path string) ([]report.Participant, error) {
	var out []report.Participant
	err := excel.NewDataReader(path, a.Logger).Each(ctx, func(row product.RawAttributes) error {
		r, who, err := excel.ParseResponse(row)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, report.Participant{ID: who, Response: r})
		return nil
	})
	return out, err
}
