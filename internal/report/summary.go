// Package report summarizes collected ratings per design cell.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"ecostim/domain/stimulus"
)

// CellKey is one organic_badge x eco_signal x salience combination.
type CellKey struct {
	OrganicBadge bool              `json:"organic_badge"`
	EcoSignal    bool              `json:"eco_signal"`
	Salience     stimulus.Salience `json:"salience"`
}

func (k CellKey) String() string {
	return fmt.Sprintf("badge=%d eco=%d %s", stimulus.Bit(k.OrganicBadge), stimulus.Bit(k.EcoSignal), k.Salience)
}

func (k CellKey) less(o CellKey) bool {
	if k.OrganicBadge != o.OrganicBadge {
		return !k.OrganicBadge
	}
	if k.EcoSignal != o.EcoSignal {
		return !k.EcoSignal
	}
	return k.Salience < o.Salience
}

// CellStats describes the ratings of one cell.
type CellStats struct {
	Key    CellKey `json:"key"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	MeanRT float64 `json:"mean_rt_seconds"`
}

// Summary is the per-cell breakdown of a response set.
type Summary struct {
	Responses    int         `json:"responses"`
	Participants int         `json:"participants"`
	Cells        []CellStats `json:"cells"`

	Timing TimingProfile `json:"timing"`
}

// Participant pairs a response with the id of whoever gave it.
type Participant struct {
	ID       string
	Response stimulus.Response
}

// Summarize groups ratings by cell. StdDev is the sample deviation and is 0 for single ratings.
func Summarize(rows []Participant) (Summary, error) {
	ratings := map[CellKey][]float64{}
	rts := map[CellKey][]float64{}
	all := make([]time.Duration, 0, len(rows))
	people := map[string]bool{}
	for _, row := range rows {
		r := row.Response
		k := CellKey{OrganicBadge: r.OrganicBadge, EcoSignal: r.EcoSignal, Salience: r.Salience}
		ratings[k] = append(ratings[k], float64(r.Rating))
		rts[k] = append(rts[k], r.ResponseTime.Seconds())
		all = append(all, r.ResponseTime)
		if row.ID != "" {
			people[row.ID] = true
		}
	}

	keys := make([]CellKey, 0, len(ratings))
	for k := range ratings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	out := Summary{Responses: len(rows), Participants: len(people)}
	timing, err := ProfileTimes(all)
	if err != nil {
		return Summary{}, fmt.Errorf("response times: %w", err)
	}
	out.Timing = timing
	for _, k := range keys {
		data := ratings[k]
		cs := CellStats{Key: k, N: len(data)}
		if cs.Mean, err = stats.Mean(data); err != nil {
			return Summary{}, fmt.Errorf("mean for %s: %w", k, err)
		}
		if cs.Median, err = stats.Median(data); err != nil {
			return Summary{}, fmt.Errorf("median for %s: %w", k, err)
		}
		if len(data) > 1 {
			if cs.StdDev, err = stats.StandardDeviationSample(data); err != nil {
				return Summary{}, fmt.Errorf("stddev for %s: %w", k, err)
			}
		}
		cs.MeanRT, _ = stats.Mean(rts[k])
		out.Cells = append(out.Cells, cs)
	}
	return out, nil
}

// Markdown renders the summary as a table.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ratings by cell\n\n%d responses from %d participants.\n\n", s.Responses, s.Participants)
	b.WriteString("| organic_badge | eco_signal | salience | n | mean | median | sd | mean rt (s) |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, c := range s.Cells {
		fmt.Fprintf(&b, "| %d | %d | %s | %d | %.2f | %.2f | %.2f | %.3f |\n",
			stimulus.Bit(c.Key.OrganicBadge), stimulus.Bit(c.Key.EcoSignal), c.Key.Salience,
			c.N, c.Mean, c.Median, c.StdDev, c.MeanRT)
	}
	if s.Timing.N > 0 {
		fmt.Fprintf(&b, "\nResponse time median %.3fs (IQR %.3f to %.3f), %d outliers, %d under %s.\n",
			s.Timing.Median, s.Timing.Q25, s.Timing.Q75, s.Timing.Outliers, s.Timing.TooFast, FastResponse)
	}
	return b.String()
}

// HTML renders the markdown table as an HTML fragment.
func (s Summary) HTML() string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(s.Markdown()), p, r))
}
