package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jmoiron/sqlx"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal/errors"
	"ecostim/ports"
)

// SessionRepositoryImpl implements SessionRepository over sqlx
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

type sessionRow struct {
	ID          string        `db:"id"`
	RunID       string        `db:"run_id"`
	Participant string        `db:"participant"`
	Age         sql.NullInt64 `db:"age"`
	Gender      string        `db:"gender"`
	Diet        string        `db:"diet"`
	Consent     int           `db:"consent"`
	StartedAt   string        `db:"started_at"`
	Completed   int           `db:"completed"`
}

// CreateSession records a new delivery session
func (r *SessionRepositoryImpl) CreateSession(ctx context.Context, s ports.SessionRecord) error {
	row := sessionRow{
		ID:          s.ID.String(),
		RunID:       s.RunID.String(),
		Participant: s.Participant.ID,
		Gender:      s.Participant.Gender,
		Diet:        s.Participant.Diet,
		Consent:     stimulus.Bit(s.Participant.Consent),
		StartedAt:   s.StartedAt.String(),
		Completed:   stimulus.Bit(s.Completed),
	}
	if s.Participant.Age != nil {
		row.Age = sql.NullInt64{Int64: int64(*s.Participant.Age), Valid: true}
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, run_id, participant, age, gender, diet, consent, started_at, completed)
		VALUES (:id, :run_id, :participant, :age, :gender, :diet, :consent, :started_at, :completed)
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to create session", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepositoryImpl) GetSession(ctx context.Context, id core.SessionID) (*ports.SessionRecord, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, run_id, participant, age, gender, diet, consent, started_at, completed
		FROM sessions WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("session", id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load session", err)
	}
	started, err := core.ParseTimestamp(row.StartedAt)
	if err != nil {
		return nil, errors.DatabaseError("corrupt session row", err)
	}
	rec := &ports.SessionRecord{
		ID:    core.SessionID(row.ID),
		RunID: core.RunID(row.RunID),
		Participant: stimulus.Participant{
			ID:      row.Participant,
			Gender:  row.Gender,
			Diet:    row.Diet,
			Consent: row.Consent == 1,
		},
		StartedAt: started,
		Completed: row.Completed == 1,
	}
	if row.Age.Valid {
		age := int(row.Age.Int64)
		rec.Participant.Age = &age
	}
	return rec, nil
}

// MarkCompleted flags a session as fully delivered
func (r *SessionRepositoryImpl) MarkCompleted(ctx context.Context, id core.SessionID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE sessions SET completed = 1 WHERE id = ?`), id.String())
	if err != nil {
		return errors.DatabaseError("failed to complete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("session", id.String())
	}
	return nil
}
