package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/internal/errors"
	"ecostim/ports"
)

// StimulusRepositoryImpl implements StimulusRepository over sqlx
type StimulusRepositoryImpl struct {
	db *sqlx.DB
}

func NewStimulusRepository(db *sqlx.DB) ports.StimulusRepository {
	return &StimulusRepositoryImpl{db: db}
}

type stimulusRow struct {
	RunID         string `db:"run_id"`
	ItemID        int    `db:"item_id"`
	Name          string `db:"product_name"`
	OrganicBadge  int    `db:"organic_badge"`
	Salience      string `db:"salience"`
	EcoSignal     int    `db:"eco_signal"`
	EcoScore      string `db:"eco_score"`
	LangDA        int    `db:"lang_da"`
	GreenWords    int    `db:"green_words"`
	Category      string `db:"category"`
	LabelsTags    string `db:"labels_tags"`
	LanguagesTags string `db:"languages_tags"`
	CountriesTags string `db:"countries_tags"`
}

func toStimulusRow(runID core.RunID, s stimulus.Stimulus) stimulusRow {
	return stimulusRow{
		RunID:         runID.String(),
		ItemID:        s.ItemID,
		Name:          s.Name,
		OrganicBadge:  stimulus.Bit(s.OrganicBadge),
		Salience:      string(s.Salience),
		EcoSignal:     stimulus.Bit(s.EcoSignal),
		EcoScore:      s.EcoScore.Lower(),
		LangDA:        stimulus.Bit(s.LanguageMatch),
		GreenWords:    stimulus.Bit(s.GreenWords),
		Category:      s.Category,
		LabelsTags:    s.LabelsTags,
		LanguagesTags: s.LanguagesTags,
		CountriesTags: s.CountriesTags,
	}
}

func (r stimulusRow) stimulus() stimulus.Stimulus {
	return stimulus.Stimulus{
		ItemID:        r.ItemID,
		Name:          r.Name,
		OrganicBadge:  r.OrganicBadge == 1,
		Salience:      stimulus.Salience(r.Salience),
		EcoSignal:     r.EcoSignal == 1,
		EcoScore:      product.ParseEcoScore(r.EcoScore),
		LanguageMatch: r.LangDA == 1,
		GreenWords:    r.GreenWords == 1,
		Category:      r.Category,
		LabelsTags:    r.LabelsTags,
		LanguagesTags: r.LanguagesTags,
		CountriesTags: r.CountriesTags,
	}
}

const insertStimulus = `
	INSERT INTO stimuli (run_id, item_id, product_name, organic_badge, salience, eco_signal, eco_score,
		lang_da, green_words, category, labels_tags, languages_tags, countries_tags)
	VALUES (:run_id, :item_id, :product_name, :organic_badge, :salience, :eco_signal, :eco_score,
		:lang_da, :green_words, :category, :labels_tags, :languages_tags, :countries_tags)
`

// SaveStimuli replaces the stimulus set of a run in one transaction
func (r *StimulusRepositoryImpl) SaveStimuli(ctx context.Context, runID core.RunID, stims []stimulus.Stimulus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM stimuli WHERE run_id = ?`), runID.String()); err != nil {
		return errors.DatabaseError("failed to clear stimuli", err)
	}
	for _, s := range stims {
		if _, err := tx.NamedExecContext(ctx, insertStimulus, toStimulusRow(runID, s)); err != nil {
			return errors.DatabaseError("failed to insert stimulus", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit stimuli", err)
	}
	return nil
}

// GetStimuli returns a run's stimuli in item_id order
func (r *StimulusRepositoryImpl) GetStimuli(ctx context.Context, runID core.RunID) ([]stimulus.Stimulus, error) {
	var rows []stimulusRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT run_id, item_id, product_name, organic_badge, salience, eco_signal, eco_score,
			lang_da, green_words, category, labels_tags, languages_tags, countries_tags
		FROM stimuli WHERE run_id = ? ORDER BY item_id
	`), runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load stimuli", err)
	}
	if len(rows) == 0 {
		return nil, core.NewNotFoundError("stimuli for run", runID.String())
	}
	out := make([]stimulus.Stimulus, len(rows))
	for i, row := range rows {
		out[i] = row.stimulus()
	}
	return out, nil
}
