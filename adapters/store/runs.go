package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jmoiron/sqlx"

	"ecostim/domain/core"
	"ecostim/domain/run"
	"ecostim/internal/errors"
	"ecostim/ports"
)

// RunRepositoryImpl implements RunRepository over sqlx
type RunRepositoryImpl struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

type runRow struct {
	ID          string `db:"id"`
	Kind        string `db:"kind"`
	Seed        int64  `db:"seed"`
	Requested   int    `db:"requested"`
	Built       int    `db:"built"`
	InputHash   string `db:"input_hash"`
	OutputHash  string `db:"output_hash"`
	Fingerprint string `db:"fingerprint"`
	CreatedAt   string `db:"created_at"`
}

func (r runRow) manifest() (run.Manifest, error) {
	created, err := core.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return run.Manifest{}, err
	}
	return run.Manifest{
		RunID:       core.RunID(r.ID),
		Kind:        run.Kind(r.Kind),
		Seed:        r.Seed,
		Requested:   r.Requested,
		Built:       r.Built,
		InputHash:   core.Hash(r.InputHash),
		OutputHash:  core.Hash(r.OutputHash),
		Fingerprint: run.Fingerprint(r.Fingerprint),
		CreatedAt:   created,
	}, nil
}

// SaveRun inserts or replaces a manifest
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, m run.Manifest) error {
	if err := m.Validate(); err != nil {
		return errors.WithCode(errors.CodeValidationError, err)
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, kind, seed, requested, built, input_hash, output_hash, fingerprint, created_at)
		VALUES (:id, :kind, :seed, :requested, :built, :input_hash, :output_hash, :fingerprint, :created_at)
		ON CONFLICT (id) DO UPDATE SET built = excluded.built, output_hash = excluded.output_hash
	`, runRow{
		ID:          m.RunID.String(),
		Kind:        string(m.Kind),
		Seed:        m.Seed,
		Requested:   m.Requested,
		Built:       m.Built,
		InputHash:   m.InputHash.String(),
		OutputHash:  m.OutputHash.String(),
		Fingerprint: string(m.Fingerprint),
		CreatedAt:   m.CreatedAt.String(),
	})
	if err != nil {
		return errors.DatabaseError("failed to save run", err)
	}
	return nil
}

// GetRun retrieves a manifest by ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, kind, seed, requested, built, input_hash, output_hash, fingerprint, created_at
		FROM runs WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("run", id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load run", err)
	}
	m, err := row.manifest()
	if err != nil {
		return nil, errors.DatabaseError("corrupt run row", err)
	}
	return &m, nil
}

// ListRuns returns the newest runs first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `
		SELECT id, kind, seed, requested, built, input_hash, output_hash, fingerprint, created_at
		FROM runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	out := make([]run.Manifest, 0, len(rows))
	for _, row := range rows {
		m, err := row.manifest()
		if err != nil {
			return nil, errors.DatabaseError("corrupt run row", err)
		}
		out = append(out, m)
	}
	return out, nil
}
