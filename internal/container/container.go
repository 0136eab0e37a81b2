package container

import (
	"context"
	"fmt"
	"log"

	"climateprep/adapters/store"
	"climateprep/app"
	"climateprep/domain/schema"
	"climateprep/internal"
	"climateprep/internal/api"
	"climateprep/internal/config"
	"climateprep/internal/migration"
	"climateprep/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	Reports ports.ReportRepository

	// Pipeline components
	Registry *schema.Registry
	Hub      *api.ProgressHub
	Prep     *app.PrepService
	Batch    *app.BatchService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}

	return c, nil
}

// Init opens the report store, loads extra schemas and builds the pipeline
func (c *Container) Init(ctx context.Context) error {
	if err := c.initReports(ctx); err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}

	if err := c.initRegistry(); err != nil {
		return fmt.Errorf("failed to initialize schema registry: %w", err)
	}

	c.initPipeline()

	log.Printf("Container initialized (store: %s, schemas: %v)", c.storeName(), c.Registry.Names())
	return nil
}

// initReports opens the configured database and migrates it, or falls back
// to the in-memory repository
func (c *Container) initReports(ctx context.Context) error {
	if c.Config.Database.InMemory() {
		c.Reports = store.NewMemoryReportRepository()
		return nil
	}

	db, err := store.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.DB = db
	c.Reports = store.NewSQLReportRepository(db)
	return nil
}

func (c *Container) initRegistry() error {
	c.Registry = schema.NewRegistry()
	if path := c.Config.Pipeline.SchemaFile; path != "" {
		n, err := c.Registry.LoadFile(path)
		if err != nil {
			return err
		}
		log.Printf("Loaded %d schemas from %s", n, path)
	}
	return nil
}

func (c *Container) initPipeline() {
	c.Hub = api.NewProgressHub()
	c.Prep = app.NewPrepService(app.PrepDeps{
		Registry: c.Registry,
		Reports:  c.Reports,
		Progress: c.Hub,
		Logger:   c.Logger,
	})
	c.Batch = app.NewBatchService(c.Prep, app.BatchConfig{
		Concurrency:      c.Config.Pipeline.BatchConcurrency,
		MaxInflightBytes: c.Config.Pipeline.BatchMaxInflightBytes,
	})
}

// Server builds the HTTP server over the container's pipeline
func (c *Container) Server() *api.Server {
	return api.NewServer(api.ServerDeps{
		Prep:           c.Prep,
		Batch:          c.Batch,
		Reports:        c.Reports,
		Hub:            c.Hub,
		MaxUploadBytes: c.Config.Server.MaxUploadBytes,
		MaxBatchBytes:  c.Config.Pipeline.BatchMaxInflightBytes,
		ProcessTimeout: c.Config.Pipeline.ProcessTimeout,
	})
}

func (c *Container) storeName() string {
	if c.DB == nil {
		return "memory"
	}
	return c.Config.Database.Driver
}

// Shutdown releases the container's resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
