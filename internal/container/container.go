package container

import (
	"context"
	"fmt"
	"log"

	"gounlearn/adapters/postgres"
	"gounlearn/app"
	"gounlearn/internal/config"
	"gounlearn/internal/viewmodel"
	"gounlearn/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories
	Experiments ports.ExperimentRepository

	// Services
	Datasets    *app.DatasetService
	Coordinator *viewmodel.Coordinator

	dataset viewmodel.Dataset
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// Init opens the experiment store when one is configured and builds the
// services on top of it. Without DATABASE_URL the services run storeless.
func (c *Container) Init(ctx context.Context) error {
	if c.Config.Database.Enabled() {
		db, err := postgres.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open experiment store: %w", err)
		}
		c.DB = db
		c.Experiments = postgres.NewExperimentRepository(db)
		log.Printf("[Container] Experiment store enabled (%s)", c.Config.Database.Driver)
	} else {
		log.Printf("[Container] No DATABASE_URL set, running without an experiment store")
	}

	c.Datasets = app.NewDatasetService(c.Experiments)
	c.Coordinator = viewmodel.NewCoordinator(c.Config.Options())
	return nil
}

// LoadDataset resolves the configured dataset and loads it into the
// coordinator
func (c *Container) LoadDataset(ctx context.Context) (viewmodel.Dataset, error) {
	if c.Datasets == nil || c.Coordinator == nil {
		return viewmodel.Dataset{}, fmt.Errorf("container not initialized")
	}
	src, err := c.Datasets.Resolve(ctx, c.Config.Data)
	if err != nil {
		return viewmodel.Dataset{}, fmt.Errorf("failed to resolve dataset: %w", err)
	}
	ds, err := c.Datasets.Load(ctx, src)
	if err != nil {
		return viewmodel.Dataset{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	if _, err := c.Coordinator.Load(ds); err != nil {
		return viewmodel.Dataset{}, fmt.Errorf("failed to initialize visualization: %w", err)
	}
	c.dataset = ds
	return ds, nil
}

// Dataset returns the dataset most recently loaded through LoadDataset
func (c *Container) Dataset() viewmodel.Dataset {
	return c.dataset
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Coordinator != nil {
		c.Coordinator.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
