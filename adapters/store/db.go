package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ecostim/internal/errors"
	"ecostim/internal/migration"
	"ecostim/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the store and applies migrations. For sqlite a file
// DSN gets its directory created; ":memory:" stays in memory.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported store driver %q", driver))
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to "+driver, err)
	}
	if driver == DriverSQLite {
		// one writer; an in-memory database also lives on a single connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.DatabaseError("failed to enable foreign keys", err)
		}
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.DatabaseError("migrations failed", err)
	}
	return db, nil
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.DatabaseError("failed to create store directory", err)
		}
	}
	return nil
}

// Repositories bundles every repository over one connection
type Repositories struct {
	Runs      ports.RunRepository
	Stimuli   ports.StimulusRepository
	Sessions  ports.SessionRepository
	Responses ports.ResponseRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Runs:      NewRunRepository(db),
		Stimuli:   NewStimulusRepository(db),
		Sessions:  NewSessionRepository(db),
		Responses: NewResponseRepository(db),
	}
}
