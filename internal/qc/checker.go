// Package qc validates a stimulus set before it goes to participants.
package qc

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal"
	apperrors "ecostim/internal/errors"
)

// RequiredColumns must be present in every stimulus file.
var RequiredColumns = []string{
	"item_id", "product_name", "organic_badge", "salience", "eco_signal",
	"eco_score", "lang_da", "green_words", "category",
}

var binaryColumns = []string{"organic_badge", "eco_signal", "lang_da", "green_words"}

// Level grades a finding.
type Level string

const (
	LevelInfo Level = "info"
	LevelOK   Level = "ok"
	LevelWarn Level = "warn"
	LevelFail Level = "fail"
)

// Finding is one line of a QC report.
type Finding struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	if f.Level == LevelInfo {
		return "[info] " + f.Message
	}
	return fmt.Sprintf("[qc %s] %s", f.Level, f.Message)
}

// CountSummary describes the spread of the four cell counts.
type CountSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Balance is the goodness-of-fit of cell counts against an even split.
type Balance struct {
	ChiSquare float64      `json:"chi_square"`
	DF        int          `json:"df"`
	PValue    float64      `json:"p_value"`
	Counts    CountSummary `json:"counts"`
}

// Report collects the findings of one Check.
type Report struct {
	Rows         int                                        `json:"rows"`
	Findings     []Finding                                  `json:"findings"`
	CellCounts   map[product.Cell]int                       `json:"cell_counts,omitempty"`
	CellSalience map[product.Cell]map[stimulus.Salience]int `json:"cell_salience,omitempty"`
	Balance      *Balance                                   `json:"balance,omitempty"`
}

func (r *Report) add(level Level, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	for _, f := range r.Findings {
		if f.Level == LevelFail {
			return true
		}
	}
	return false
}

// Warnings returns the warn findings.
func (r *Report) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Level == LevelWarn {
			out = append(out, f)
		}
	}
	return out
}

// Err returns a QC_FAILED error carrying the first failure, or nil.
func (r *Report) Err() error {
	for _, f := range r.Findings {
		if f.Level == LevelFail {
			return apperrors.QCFailed(f.Message)
		}
	}
	return nil
}

// Lines renders the report in check order.
func (r *Report) Lines() []string {
	out := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.String()
	}
	return out
}

// Options tunes the checker.
type Options struct {
	// ExpectedRows triggers a warning when the set has a different size. 0 skips the check.
	ExpectedRows int
	// MaxNameDups is the number of duplicated product_name rows tolerated with a warning.
	MaxNameDups int
}

func DefaultOptions() Options {
	return Options{ExpectedRows: 240, MaxNameDups: 10}
}

// Checker runs the stimulus-set checks in a fixed order and stops at the first failure.
type Checker struct {
	opts   Options
	logger *internal.Logger
}

func NewChecker(opts Options, logger *internal.Logger) *Checker {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Checker{opts: opts, logger: logger}
}

// parsed holds the typed columns once the row-level checks passed.
type parsed struct {
	organic  []int
	eco      []int
	salience []stimulus.Salience
}

// Check validates a table given as headers plus rows.
func (c *Checker) Check(headers []string, rows []product.RawAttributes) *Report {
	r := &Report{Rows: len(rows)}
	r.add(LevelInfo, "loaded %d rows", len(rows))

	steps := []func(*Report, []string, []product.RawAttributes, *parsed) bool{
		c.checkColumns,
		c.checkRowCount,
		c.checkItemIDs,
		c.checkNames,
		c.checkBinary,
		c.checkSalience,
		c.checkEcoScore,
		c.checkBalance,
	}
	p := &parsed{}
	for _, step := range steps {
		if !step(r, headers, rows, p) {
			break
		}
	}
	if !r.Failed() {
		r.add(LevelOK, "qc completed successfully")
	}

	for _, f := range r.Findings {
		switch f.Level {
		case LevelFail:
			c.logger.Error("[qc] %s", f.Message)
		case LevelWarn:
			c.logger.Warn("[qc] %s", f.Message)
		default:
			c.logger.Debug("[qc] %s", f.Message)
		}
	}
	return r
}

func (c *Checker) checkColumns(r *Report, headers []string, _ []product.RawAttributes, _ *parsed) bool {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		r.add(LevelFail, "missing required columns: %v", missing)
		return false
	}
	r.add(LevelOK, "all required columns present")
	return true
}

func (c *Checker) checkRowCount(r *Report, _ []string, rows []product.RawAttributes, _ *parsed) bool {
	if len(rows) == 0 {
		r.add(LevelFail, "stimulus set is empty")
		return false
	}
	if c.opts.ExpectedRows > 0 && len(rows) != c.opts.ExpectedRows {
		r.add(LevelWarn, "row count != expected (%d vs %d)", len(rows), c.opts.ExpectedRows)
	}
	return true
}

// parseNumber accepts integral values written as "3" or "3.0".
func parseNumber(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func (c *Checker) checkItemIDs(r *Report, _ []string, rows []product.RawAttributes, _ *parsed) bool {
	ids := make([]int, len(rows))
	seen := make(map[int]int, len(rows))
	var dups []string
	for i, row := range rows {
		id, ok := parseNumber(row.Get("item_id"))
		if !ok {
			r.add(LevelFail, "item_id not fully numeric / int-convertible (row %d: %q)", i+1, row.Get("item_id"))
			return false
		}
		ids[i] = id
		seen[id]++
		if seen[id] == 2 && len(dups) < 10 {
			dups = append(dups, fmt.Sprintf("%d %q", id, row.Get("product_name")))
		}
	}
	if len(dups) > 0 {
		r.add(LevelFail, "duplicate item_id values found: %s", strings.Join(dups, "; "))
		return false
	}
	r.add(LevelOK, "item_id unique")

	sort.Ints(ids)
	if ids[0] != 1 || ids[len(ids)-1] != len(ids) {
		r.add(LevelWarn, "item_id is not the sequence 1..%d", len(ids))
	}
	return true
}

func (c *Checker) checkNames(r *Report, _ []string, rows []product.RawAttributes, _ *parsed) bool {
	seen := make(map[string]bool, len(rows))
	dups := 0
	for i, row := range rows {
		name := row.Get("product_name")
		if name == "" {
			r.add(LevelFail, "some rows have empty product_name (row %d)", i+1)
			return false
		}
		if seen[name] {
			dups++
		}
		seen[name] = true
	}
	r.add(LevelOK, "product_name non-empty")

	switch {
	case dups == 0:
		r.add(LevelOK, "no duplicated product_name")
	case dups > c.opts.MaxNameDups:
		r.add(LevelFail, "found %d duplicated product_name rows (max_name_dups=%d)", dups, c.opts.MaxNameDups)
		return false
	default:
		r.add(LevelWarn, "found %d duplicated product_name rows (allowed up to %d)", dups, c.opts.MaxNameDups)
	}
	return true
}

func (c *Checker) checkBinary(r *Report, _ []string, rows []product.RawAttributes, p *parsed) bool {
	for _, col := range binaryColumns {
		bad := map[string]bool{}
		values := make([]int, len(rows))
		for i, row := range rows {
			raw := row.Get(col)
			v, ok := parseNumber(raw)
			if raw == "" {
				// blanks are tolerated here and caught by the balance check
				values[i] = -1
				continue
			}
			if !ok || (v != 0 && v != 1) {
				bad[raw] = true
				continue
			}
			values[i] = v
		}
		if len(bad) > 0 {
			r.add(LevelFail, "%s has values outside 0/1: %v", col, sortedKeys(bad))
			return false
		}
		switch col {
		case "organic_badge":
			p.organic = values
		case "eco_signal":
			p.eco = values
		}
	}
	r.add(LevelOK, "binary columns valid")
	return true
}

func (c *Checker) checkSalience(r *Report, _ []string, rows []product.RawAttributes, p *parsed) bool {
	p.salience = make([]stimulus.Salience, len(rows))
	var bad []string
	for i, row := range rows {
		s, ok := stimulus.ParseSalience(row.Get("salience"))
		if !ok {
			if len(bad) < 10 {
				bad = append(bad, fmt.Sprintf("%s=%q", row.Get("item_id"), row.Get("salience")))
			}
			continue
		}
		p.salience[i] = s
	}
	if len(bad) > 0 {
		r.add(LevelFail, "invalid salience values: %s", strings.Join(bad, ", "))
		return false
	}
	r.add(LevelOK, "salience valid")
	return true
}

func (c *Checker) checkEcoScore(r *Report, _ []string, rows []product.RawAttributes, p *parsed) bool {
	var bad, mismatch []string
	for i, row := range rows {
		grade := product.ParseEcoScore(row.Get("eco_score"))
		if grade.IsMissing() || len(strings.TrimSpace(row.Get("eco_score"))) != 1 {
			if len(bad) < 10 {
				bad = append(bad, fmt.Sprintf("%s=%q", row.Get("item_id"), row.Get("eco_score")))
			}
			continue
		}
		if stimulus.Bit(grade.Good()) != p.eco[i] && len(mismatch) < 10 {
			mismatch = append(mismatch, fmt.Sprintf("%s (eco_score=%s eco_signal=%d)", row.Get("item_id"), grade.Lower(), p.eco[i]))
		}
	}
	if len(bad) > 0 {
		r.add(LevelFail, "invalid eco_score values: %s", strings.Join(bad, ", "))
		return false
	}
	r.add(LevelOK, "eco_score valid")
	if len(mismatch) > 0 {
		r.add(LevelFail, "eco_signal inconsistent with eco_score: %s", strings.Join(mismatch, ", "))
		return false
	}
	r.add(LevelOK, "eco_signal consistent with eco_score")
	return true
}

func (c *Checker) checkBalance(r *Report, _ []string, rows []product.RawAttributes, p *parsed) bool {
	r.CellCounts = make(map[product.Cell]int, len(product.Cells))
	r.CellSalience = make(map[product.Cell]map[stimulus.Salience]int, len(product.Cells))
	for i := range rows {
		if p.organic[i] < 0 {
			r.add(LevelFail, "organic_badge is blank for item %s", rows[i].Get("item_id"))
			return false
		}
		cell := product.CellFor(p.eco[i] == 1, p.organic[i] == 1)
		r.CellCounts[cell]++
		if r.CellSalience[cell] == nil {
			r.CellSalience[cell] = map[stimulus.Salience]int{}
		}
		r.CellSalience[cell][p.salience[i]]++
	}

	counts := make([]float64, 0, len(product.Cells))
	for _, cell := range product.Cells {
		n := r.CellCounts[cell]
		r.add(LevelInfo, "cell %s: %d", cell.Pair(), n)
		if n == 0 {
			r.add(LevelFail, "missing cell %s", cell.Pair())
			return false
		}
		counts = append(counts, float64(n))
	}

	bal := Balance{DF: len(counts) - 1}
	bal.ChiSquare, bal.PValue = evenFit(counts)
	bal.Counts.Mean, _ = stats.Mean(counts)
	bal.Counts.StdDev, _ = stats.StandardDeviation(counts)
	bal.Counts.Min, _ = stats.Min(counts)
	bal.Counts.Max, _ = stats.Max(counts)
	r.Balance = &bal

	if bal.Counts.Min != bal.Counts.Max {
		r.add(LevelWarn, "4-cell balance not perfectly equal (chi2=%.3f, df=%d, p=%.4f)", bal.ChiSquare, bal.DF, bal.PValue)
	} else {
		r.add(LevelOK, "4-cell balance perfect")
	}

	for _, cell := range product.Cells {
		low := r.CellSalience[cell][stimulus.SalienceLow]
		high := r.CellSalience[cell][stimulus.SalienceHigh]
		r.add(LevelInfo, "cell %s x salience: low=%d high=%d", cell.Pair(), low, high)
		if low != high {
			r.add(LevelWarn, "cell %s salience imbalance (low=%d, high=%d)", cell.Pair(), low, high)
		}
	}
	return true
}

// evenFit is Pearson's chi-square against equal expected counts.
func evenFit(observed []float64) (chi2, p float64) {
	total, _ := stats.Sum(observed)
	expected := total / float64(len(observed))
	for _, o := range observed {
		d := o - expected
		chi2 += d * d / expected
	}
	dist := distuv.ChiSquared{K: float64(len(observed) - 1)}
	return chi2, 1 - dist.CDF(chi2)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
