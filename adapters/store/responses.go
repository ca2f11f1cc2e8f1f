package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal/errors"
	"ecostim/ports"
)

// ResponseRepositoryImpl implements ResponseRepository over sqlx
type ResponseRepositoryImpl struct {
	db *sqlx.DB
}

func NewResponseRepository(db *sqlx.DB) ports.ResponseRepository {
	return &ResponseRepositoryImpl{db: db}
}

type responseRow struct {
	SessionID  string `db:"session_id"`
	Seq        int    `db:"seq"`
	ItemID     int    `db:"item_id"`
	Rating     int    `db:"rating"`
	RTMillis   int64  `db:"rt_ms"`
	BlockShown int    `db:"block_shown"`
}

// joined response and stimulus columns
type responseView struct {
	stimulusRow
	Seq        int   `db:"seq"`
	Rating     int   `db:"rating"`
	RTMillis   int64 `db:"rt_ms"`
	BlockShown int   `db:"block_shown"`
}

func (v responseView) response() stimulus.Response {
	return stimulus.Response{
		Stimulus:     v.stimulusRow.stimulus(),
		Rating:       v.Rating,
		ResponseTime: time.Duration(v.RTMillis) * time.Millisecond,
		BlockShown:   v.BlockShown,
	}
}

// SaveResponses appends responses after any already stored for the session
func (r *ResponseRepositoryImpl) SaveResponses(ctx context.Context, sessionID core.SessionID, responses []stimulus.Response) error {
	for _, resp := range responses {
		if !stimulus.ValidRating(resp.Rating) {
			return errors.WithCode(errors.CodeInvalidInput, core.ErrInvalidRating)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.GetContext(ctx, &next, tx.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM responses WHERE session_id = ?`), sessionID.String()); err != nil {
		return errors.DatabaseError("failed to read response sequence", err)
	}
	for _, resp := range responses {
		next++
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO responses (session_id, seq, item_id, rating, rt_ms, block_shown)
			VALUES (:session_id, :seq, :item_id, :rating, :rt_ms, :block_shown)
		`, responseRow{
			SessionID:  sessionID.String(),
			Seq:        next,
			ItemID:     resp.ItemID,
			Rating:     resp.Rating,
			RTMillis:   resp.ResponseTime.Milliseconds(),
			BlockShown: resp.BlockShown,
		})
		if err != nil {
			return errors.DatabaseError("failed to insert response", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit responses", err)
	}
	return nil
}

const responseViewColumns = `
	st.run_id, st.item_id, st.product_name, st.organic_badge, st.salience, st.eco_signal, st.eco_score,
	st.lang_da, st.green_words, st.category, st.labels_tags, st.languages_tags, st.countries_tags,
	r.seq, r.rating, r.rt_ms, r.block_shown
`

// ListResponses returns one session's responses in delivery order
func (r *ResponseRepositoryImpl) ListResponses(ctx context.Context, sessionID core.SessionID) ([]stimulus.Response, error) {
	return r.list(ctx, `
		SELECT `+responseViewColumns+`
		FROM responses r
		JOIN sessions s ON s.id = r.session_id
		JOIN stimuli st ON st.run_id = s.run_id AND st.item_id = r.item_id
		WHERE r.session_id = ?
		ORDER BY r.seq
	`, sessionID.String())
}

// ListRunResponses returns every response collected against a run's stimuli
func (r *ResponseRepositoryImpl) ListRunResponses(ctx context.Context, runID core.RunID) ([]stimulus.Response, error) {
	return r.list(ctx, `
		SELECT `+responseViewColumns+`
		FROM responses r
		JOIN sessions s ON s.id = r.session_id
		JOIN stimuli st ON st.run_id = s.run_id AND st.item_id = r.item_id
		WHERE s.run_id = ?
		ORDER BY s.started_at, r.session_id, r.seq
	`, runID.String())
}

func (r *ResponseRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]stimulus.Response, error) {
	var rows []responseView
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list responses", err)
	}
	out := make([]stimulus.Response, len(rows))
	for i, v := range rows {
		out[i] = v.response()
	}
	return out, nil
}
