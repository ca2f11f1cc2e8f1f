package stimulus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ecostim/domain/product"
)

// Salience is the presentation intensity of the organic badge.
type Salience string

const (
	SalienceLow  Salience = "low"
	SalienceHigh Salience = "high"
)

// Saliences lists both levels in canonical order.
var Saliences = []Salience{SalienceLow, SalienceHigh}

// ParseSalience normalizes case and whitespace; ok is false for anything else.
func ParseSalience(s string) (Salience, bool) {
	switch Salience(strings.ToLower(strings.TrimSpace(s))) {
	case SalienceLow:
		return SalienceLow, true
	case SalienceHigh:
		return SalienceHigh, true
	}
	return "", false
}

// Stimulus is a single-item presentation unit.
type Stimulus struct {
	ItemID        int
	Name          string
	OrganicBadge  bool
	Salience      Salience
	EcoSignal     bool
	EcoScore      product.EcoScore
	LanguageMatch bool
	GreenWords    bool
	Category      string

	LabelsTags    string
	LanguagesTags string
	CountriesTags string
}

// FromItem copies the presentation fields of an item. ItemID and Salience stay unset.
func FromItem(it product.Item) Stimulus {
	return Stimulus{
		Name:          it.Name,
		OrganicBadge:  it.OrganicLabel,
		EcoSignal:     it.EcoSignal,
		EcoScore:      it.EcoScore,
		LanguageMatch: it.LanguageMatch,
		GreenWords:    it.GreenWords,
		Category:      it.Category,
		LabelsTags:    it.LabelsTags,
		LanguagesTags: it.LanguagesTags,
		CountriesTags: it.CountriesTags,
	}
}

// Cell returns the 4-way design cell of the stimulus.
func (s Stimulus) Cell() product.Cell {
	return product.CellFor(s.EcoSignal, s.OrganicBadge)
}

// BlockKey stratifies blocks over badge, eco signal and salience.
func (s Stimulus) BlockKey() string {
	return string(s.Cell()) + "/" + string(s.Salience)
}

// ItemSummary is one side of a paired comparison trial.
type ItemSummary struct {
	Name        string
	Category    string
	Label       bool
	Sustainable bool
}

func Summarize(it product.Item) ItemSummary {
	return ItemSummary{
		Name:        it.Name,
		Category:    it.Category,
		Label:       it.OrganicLabel,
		Sustainable: it.EcoSignal,
	}
}

// TrialCell is one of the 8 cells of the paired design.
type TrialCell struct {
	Congruent bool
	LeftIsA   bool
	Salience  Salience
}

// TrialCells is the canonical order: congruent × left_is_A × salience.
var TrialCells = func() []TrialCell {
	cells := make([]TrialCell, 0, 8)
	for _, c := range []bool{false, true} {
		for _, l := range []bool{false, true} {
			for _, s := range Saliences {
				cells = append(cells, TrialCell{Congruent: c, LeftIsA: l, Salience: s})
			}
		}
	}
	return cells
}()

func (c TrialCell) String() string {
	return fmt.Sprintf("congruent=%d/left_is_A=%d/%s", Bit(c.Congruent), Bit(c.LeftIsA), c.Salience)
}

// Trial is a paired left/right comparison unit.
type Trial struct {
	TrialID   int
	Congruent bool
	LeftIsA   bool
	Salience  Salience
	Left      ItemSummary
	Right     ItemSummary
}

func (t Trial) Cell() TrialCell {
	return TrialCell{Congruent: t.Congruent, LeftIsA: t.LeftIsA, Salience: t.Salience}
}

// A returns the eco-favoured side of the trial.
func (t Trial) A() ItemSummary {
	if t.LeftIsA {
		return t.Left
	}
	return t.Right
}

// NotA returns the eco-disfavoured side of the trial.
func (t Trial) NotA() ItemSummary {
	if t.LeftIsA {
		return t.Right
	}
	return t.Left
}

// ShortfallReport records slots that could not be filled after bounded retries.
type ShortfallReport struct {
	Requested int
	Built     int
	ByCell    map[string]int
}

func (r ShortfallReport) Total() int { return r.Requested - r.Built }

func (r ShortfallReport) Empty() bool { return r.Total() == 0 }

func (r ShortfallReport) String() string {
	keys := make([]string, 0, len(r.ByCell))
	for k := range r.ByCell {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, r.ByCell[k]))
	}
	return fmt.Sprintf("built %d/%d, shortfall {%s}", r.Built, r.Requested, strings.Join(parts, ", "))
}

// Block is an ordered, stratified subset of the stimulus set.
type Block struct {
	Index   int // construction order, 0-based
	Stimuli []Stimulus
}

// Participant describes the person rating a session.
type Participant struct {
	ID      string
	Age     *int
	Gender  string
	Diet    string
	Consent bool
}

// NormalizeParticipant applies the intake rules: blank id becomes "anon",
// ages outside 10..100 are dropped.
func NormalizeParticipant(p Participant) Participant {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = "anon"
	}
	if p.Age != nil && (*p.Age < 10 || *p.Age > 100) {
		p.Age = nil
	}
	return p
}

// Response is one recorded rating.
type Response struct {
	Stimulus
	Rating       int
	ResponseTime time.Duration
	BlockShown   int
}

// ValidRating reports whether r is on the 1..7 scale.
func ValidRating(r int) bool { return r >= 1 && r <= 7 }

// Bit renders a boolean signal as 0/1.
func Bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
