package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"ecostim/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The schema sticks to
// types both sqlite and postgres accept; timestamps are RFC3339 text.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"runs table", createRunsTable},
		{"stimuli table", createStimuliTable},
		{"sessions table", createSessionsTable},
		{"responses table", createResponsesTable},
		{"indexes", createSessionsRunIndex},
	}
	for _, s := range steps {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.Wrap(err, "failed to create "+s.name)
		}
	}
	return nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		seed BIGINT NOT NULL,
		requested INTEGER NOT NULL,
		built INTEGER NOT NULL,
		input_hash TEXT NOT NULL DEFAULT '',
		output_hash TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL,
		created_at TEXT NOT NULL
	)
`

const createStimuliTable = `
	CREATE TABLE IF NOT EXISTS stimuli (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		item_id INTEGER NOT NULL,
		product_name TEXT NOT NULL,
		organic_badge INTEGER NOT NULL,
		salience TEXT NOT NULL,
		eco_signal INTEGER NOT NULL,
		eco_score TEXT NOT NULL,
		lang_da INTEGER NOT NULL,
		green_words INTEGER NOT NULL,
		category TEXT NOT NULL,
		labels_tags TEXT NOT NULL DEFAULT '',
		languages_tags TEXT NOT NULL DEFAULT '',
		countries_tags TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, item_id)
	)
`

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		participant TEXT NOT NULL,
		age INTEGER,
		gender TEXT NOT NULL DEFAULT '',
		diet TEXT NOT NULL DEFAULT '',
		consent INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0
	)
`

const createResponsesTable = `
	CREATE TABLE IF NOT EXISTS responses (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		rating INTEGER NOT NULL,
		rt_ms BIGINT NOT NULL,
		block_shown INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	)
`

const createSessionsRunIndex = `CREATE INDEX IF NOT EXISTS idx_sessions_run ON sessions(run_id)`
