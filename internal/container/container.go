package container

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"ecostim/adapters/api"
	"ecostim/adapters/console"
	"ecostim/adapters/excel"
	"ecostim/adapters/rng"
	"ecostim/adapters/store"
	"ecostim/internal"
	"ecostim/internal/config"
	"ecostim/internal/experiment"
	"ecostim/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB  *sqlx.DB
	RNG ports.RNGPort

	// Repositories (data access layer)
	Runs      ports.RunRepository
	Stimuli   ports.StimulusRepository
	Sessions  ports.SessionRepository
	Responses ports.ResponseRepository
}

// New creates a new dependency injection container. The store is opened lazily.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Container{Config: cfg, Logger: logger, RNG: rng.New()}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	repos := store.NewRepositories(db)
	c.Runs = repos.Runs
	c.Stimuli = repos.Stimuli
	c.Sessions = repos.Sessions
	c.Responses = repos.Responses

	c.Logger.Debug("container initialized with %s store", db.DriverName())
	return nil
}

// OpenStore connects the configured store once; later calls are no-ops.
func (c *Container) OpenStore(ctx context.Context) error {
	if c.DB != nil {
		return nil
	}
	db, err := store.Open(ctx, c.Config.Store.Driver, c.Config.Store.DSN)
	if err != nil {
		return err
	}
	if err := c.InitWithDatabase(db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// TerminalRunner wires a delivery runner that talks to a terminal and
// archives sessions as CSV under archiveDir.
func (c *Container) TerminalRunner(in io.Reader, out io.Writer, archiveDir string) *experiment.Runner {
	return experiment.NewRunner(
		console.NewPresenter(in, out),
		excel.NewResponseArchive(archiveDir),
		c.Sessions,
		c.Responses,
		c.Logger,
	)
}

// APIServer wires the delivery API over the store. OpenStore must have succeeded.
func (c *Container) APIServer() *api.Server {
	return api.NewServer(api.Config{
		Addr:    c.Config.Server.Addr,
		NBlocks: c.Config.Design.Blocks,
		Seed:    c.Config.Design.Seed,
	}, c.Stimuli, c.Sessions, c.Responses, c.RNG, c.Logger)
}

// Shutdown releases the store and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	c.Logger.Sync()
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
