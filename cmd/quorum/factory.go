package main

import (
	"fmt"
	"log"

	"github.com/ecrowe/quorum/internal/collab"
	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/internal/invoke"
	"github.com/ecrowe/quorum/internal/planner"
	"github.com/ecrowe/quorum/internal/registry"
	"github.com/ecrowe/quorum/internal/scheduler"
	"github.com/ecrowe/quorum/internal/store"
	"github.com/ecrowe/quorum/internal/synthesis"
	"github.com/ecrowe/quorum/pkg/models"
)

// runtime bundles everything a command needs to serve requests.
type runtime struct {
	cfg      *config.Config
	store    *store.DB
	registry *registry.Registry
	engine   *collab.Engine
	watcher  *registry.Watcher
	logger   *scheduler.DebugLogger
}

// Close releases the runtime's resources.
func (r *runtime) Close() {
	if r.watcher != nil {
		r.watcher.Close()
	}
	if r.logger != nil {
		r.logger.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
}

// openStore opens and migrates the project store without building the
// full engine. Used by read-only commands.
func openStore(cfg *config.Config) (*store.DB, error) {
	path := cfg.Storage.Path
	if path == "" {
		path = store.DefaultPath()
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}

// buildRegistry loads worker definitions and registers them.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New(cfg.Workers.FailureLimit)

	workers, err := loadWorkerDefinitions(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range workers {
		if err := reg.Register(w); err != nil {
			return nil, fmt.Errorf("register worker: %w", err)
		}
	}
	return reg, nil
}

func loadWorkerDefinitions(cfg *config.Config) ([]*models.Worker, error) {
	if cfg.Workers.File == "" {
		return config.DefaultWorkers(), nil
	}
	workers, err := config.LoadWorkers(cfg.Workers.File)
	if err != nil {
		return nil, fmt.Errorf("load workers: %w", err)
	}
	return workers, nil
}

// buildRuntime wires the full collaboration engine.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	var watcher *registry.Watcher
	if cfg.Workers.Watch && cfg.Workers.File != "" {
		watcher, err = registry.Watch(cfg.Workers.File, func() error {
			workers, err := config.LoadWorkers(cfg.Workers.File)
			if err != nil {
				return err
			}
			for _, w := range workers {
				if err := reg.Replace(w); err != nil {
					return err
				}
			}
			log.Printf("[quorum] reloaded %d worker definitions", len(workers))
			return nil
		})
		if err != nil {
			log.Printf("[quorum] worker file watch disabled: %v", err)
		}
	}

	invoker, err := invoke.NewAnthropicInvoker(cfg.Anthropic)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger, err := scheduler.NewDebugLogger(cfg.Scheduler.DebugLog)
	if err != nil {
		log.Printf("[quorum] debug log disabled: %v", err)
		logger = scheduler.NopLogger()
	}

	sched := scheduler.New(reg, registry.NewRunLocks(), db, invoker, cfg.Scheduler, logger)

	dec, err := buildDecomposer(cfg, reg, invoker)
	if err != nil {
		db.Close()
		return nil, err
	}

	var priority []models.Role
	for _, r := range cfg.Synthesis.RolePriority {
		priority = append(priority, models.Role(r))
	}
	syn := synthesis.New(priority)

	return &runtime{
		cfg:      cfg,
		store:    db,
		registry: reg,
		engine:   collab.New(db, dec, sched, syn, cfg),
		watcher:  watcher,
		logger:   logger,
	}, nil
}

func buildDecomposer(cfg *config.Config, reg *registry.Registry, inv invoke.Invoker) (planner.Decomposer, error) {
	switch cfg.Planner.Mode {
	case "", "template":
		return planner.NewTemplateDecomposer(reg, cfg.Planner.MaxWorkersPerProject), nil
	case "planner":
		return planner.NewPlannerDecomposer(inv, reg, cfg.Planner.Worker), nil
	default:
		return nil, fmt.Errorf("unknown planner mode %q", cfg.Planner.Mode)
	}
}
