package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
)

func bit(b bool) string { return strconv.Itoa(stimulus.Bit(b)) }

// StimulusRecord renders one stimulus in StimulusColumns order.
func StimulusRecord(s stimulus.Stimulus) []string {
	return []string{
		strconv.Itoa(s.ItemID),
		s.Name,
		bit(s.OrganicBadge),
		string(s.Salience),
		bit(s.EcoSignal),
		string(s.EcoScore),
		bit(s.LanguageMatch),
		bit(s.GreenWords),
		s.Category,
		s.LabelsTags,
		s.LanguagesTags,
		s.CountriesTags,
	}
}

// TrialRecord renders one trial in TrialColumns order.
func TrialRecord(t stimulus.Trial) []string {
	return []string{
		strconv.Itoa(t.TrialID),
		bit(t.Congruent),
		bit(t.LeftIsA),
		string(t.Salience),
		t.Left.Name, t.Left.Category, bit(t.Left.Label), bit(t.Left.Sustainable),
		t.Right.Name, t.Right.Category, bit(t.Right.Label), bit(t.Right.Sustainable),
	}
}

// ResponseRecord renders a response as stimulus columns followed by ResponseExtraColumns.
func ResponseRecord(r stimulus.Response, p stimulus.Participant) []string {
	age := ""
	if p.Age != nil {
		age = strconv.Itoa(*p.Age)
	}
	return append(StimulusRecord(r.Stimulus),
		strconv.Itoa(r.Rating),
		strconv.FormatFloat(r.ResponseTime.Seconds(), 'f', 4, 64),
		strconv.Itoa(r.BlockShown),
		p.ID, age, p.Gender, p.Diet, bit(p.Consent),
	)
}

// ParseStimulus reads a stimulus row written by StimulusRecord or by hand.
func ParseStimulus(row product.RawAttributes) (stimulus.Stimulus, error) {
	id, err := strconv.Atoi(row.Get("item_id"))
	if err != nil {
		return stimulus.Stimulus{}, fmt.Errorf("item_id %q is not an integer", row.Get("item_id"))
	}
	s := stimulus.Stimulus{
		ItemID:        id,
		Name:          row.Get("product_name"),
		EcoScore:      product.ParseEcoScore(row.Get("eco_score")),
		Category:      row.Get("category"),
		LabelsTags:    row.Get(product.ColLabelsTags),
		LanguagesTags: row.Get(product.ColLanguagesTags),
		CountriesTags: row.Get(product.ColCountriesTags),
	}
	for col, dst := range map[string]*bool{
		"organic_badge": &s.OrganicBadge,
		"eco_signal":    &s.EcoSignal,
		"lang_da":       &s.LanguageMatch,
		"green_words":   &s.GreenWords,
	} {
		v, err := ParseBit(row.Get(col))
		if err != nil {
			return stimulus.Stimulus{}, fmt.Errorf("item %d: %s: %w", id, col, err)
		}
		*dst = v
	}
	sal, ok := stimulus.ParseSalience(row.Get("salience"))
	if !ok {
		return stimulus.Stimulus{}, fmt.Errorf("item %d: salience %q is not low/high", id, row.Get("salience"))
	}
	s.Salience = sal
	return s, nil
}

// ParseTrial reads a trial row written by TrialRecord.
func ParseTrial(row product.RawAttributes) (stimulus.Trial, error) {
	id, err := strconv.Atoi(row.Get("trial_id"))
	if err != nil {
		return stimulus.Trial{}, fmt.Errorf("trial_id %q is not an integer", row.Get("trial_id"))
	}
	t := stimulus.Trial{
		TrialID: id,
		Left:    stimulus.ItemSummary{Name: row.Get("left_name"), Category: row.Get("left_category")},
		Right:   stimulus.ItemSummary{Name: row.Get("right_name"), Category: row.Get("right_category")},
	}
	for col, dst := range map[string]*bool{
		"congruent":         &t.Congruent,
		"left_is_A":         &t.LeftIsA,
		"left_label":        &t.Left.Label,
		"left_sustainable":  &t.Left.Sustainable,
		"right_label":       &t.Right.Label,
		"right_sustainable": &t.Right.Sustainable,
	} {
		v, err := ParseBit(row.Get(col))
		if err != nil {
			return stimulus.Trial{}, fmt.Errorf("trial %d: %s: %w", id, col, err)
		}
		*dst = v
	}
	sal, ok := stimulus.ParseSalience(row.Get("salience"))
	if !ok {
		return stimulus.Trial{}, fmt.Errorf("trial %d: salience %q is not low/high", id, row.Get("salience"))
	}
	t.Salience = sal
	return t, nil
}

// ParseBit accepts 0/1 and the float renderings "0.0"/"1.0".
func ParseBit(v string) (bool, error) {
	switch strings.TrimSpace(v) {
	case "1", "1.0":
		return true, nil
	case "0", "0.0":
		return false, nil
	}
	return false, fmt.Errorf("value %q is not 0/1", v)
}

// ParseResponseTime reads seconds as written by ResponseRecord.
func ParseResponseTime(v string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

// ParseResponse reads a row written by ResponseRecord and returns the
// response with the participant id it belongs to.
func ParseResponse(row product.RawAttributes) (stimulus.Response, string, error) {
	s, err := ParseStimulus(row)
	if err != nil {
		return stimulus.Response{}, "", err
	}
	rating, err := strconv.Atoi(row.Get("rating"))
	if err != nil || !stimulus.ValidRating(rating) {
		return stimulus.Response{}, "", fmt.Errorf("item %d: rating %q is not 1..7", s.ItemID, row.Get("rating"))
	}
	rt, err := ParseResponseTime(row.Get("rt"))
	if err != nil {
		return stimulus.Response{}, "", fmt.Errorf("item %d: rt %q: %w", s.ItemID, row.Get("rt"), err)
	}
	block, _ := strconv.Atoi(row.Get("block_shown"))
	return stimulus.Response{Stimulus: s, Rating: rating, ResponseTime: rt, BlockShown: block}, row.Get("participant"), nil
}
