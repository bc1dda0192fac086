// Package app wires the configured backends into a ready orchestrator and
// delivery pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/config"
	"github.com/dusk-indust/casier/internal/delivery"
	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/genclient"
	"github.com/dusk-indust/casier/internal/lock"
	"github.com/dusk-indust/casier/internal/orchestrator"
	"github.com/dusk-indust/casier/internal/pgstore"
	"github.com/dusk-indust/casier/internal/registry"
)

// App holds the wired components. Close releases every backend it opened.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Registry     *registry.Registry
	Graph        *depgraph.Holder
	Artifacts    artifact.Store
	Directory    orchestrator.Directory
	Orchestrator *orchestrator.Orchestrator
	Delivery     *delivery.Pipeline
	Progress     *orchestrator.ProgressReporter

	casiers registry.Source
	graphs  depgraph.Source
	closers []io.Closer
}

// New opens the backends selected by cfg, loads the casier catalog and the
// dependency graph concurrently, and builds the orchestrator.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.openBackends(ctx); err != nil {
		a.Close()
		return nil, err
	}

	casiers, graph, err := a.load(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry, err = registry.New(casiers)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Graph = depgraph.NewHolder(graph)

	locker, err := a.locker()
	if err != nil {
		a.Close()
		return nil, err
	}

	gen := genclient.New(joinURL(cfg.ServiceURL, cfg.GeneratePath), genclient.WithTimeout(cfg.HTTPTimeout))
	a.Progress = orchestrator.NewProgressReporter()
	a.Orchestrator = orchestrator.New(a.Registry, a.Graph, a.Artifacts, gen, a.Directory,
		orchestrator.WithLocker(locker),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithProgress(a.Progress),
		orchestrator.WithGenerationTimeout(cfg.GenerationTimeout),
	)
	a.Delivery = delivery.New(delivery.DefaultRoutes(cfg.ServiceURL),
		delivery.WithTimeout(cfg.HTTPTimeout),
		delivery.WithRetryPolicy(delivery.RetryPolicy{MaxRetries: cfg.Retry.MaxRetries, Base: cfg.Retry.BaseDelay}),
		delivery.WithLogger(logger.Named("delivery")),
	)

	logger.Info("casier ready",
		zap.Int("casiers", a.Registry.Len()),
		zap.Int("documentTypes", graph.Len()),
		zap.Bool("postgres", cfg.DatabaseDSN != ""),
		zap.Bool("redisLock", cfg.Redis.Addr != ""),
	)
	return a, nil
}

// Reload re-reads the casier catalog and the dependency graph and swaps them
// in. When either fails to load or validate, both previous versions stay in
// force.
func (a *App) Reload(ctx context.Context) error {
	casiers, graph, err := a.load(ctx)
	if err != nil {
		return err
	}
	if err := a.Registry.Replace(casiers); err != nil {
		return err
	}
	a.Graph.Swap(graph)
	a.Logger.Info("reloaded", zap.Int("casiers", a.Registry.Len()), zap.Int("documentTypes", graph.Len()))
	return nil
}

// Close releases backends in reverse opening order.
func (a *App) Close() error {
	if a.Progress != nil {
		a.Progress.Close()
		a.Progress = nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openBackends(ctx context.Context) error {
	cfg := a.Config
	if cfg.DatabaseDSN != "" {
		pg, err := pgstore.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.casiers = pg.Casiers()
		a.graphs = pg.Graph()
		a.Artifacts = pg.Artifacts()
		a.Directory = pg.Directory()
	} else {
		a.casiers = registry.FileSource{Path: cfg.Catalog}
		a.graphs = depgraph.FileSource{Path: cfg.Graph}
		a.Artifacts = artifact.NewMemStore()
		a.Directory = memDirectory(cfg.Clients)
	}

	if cfg.KuzuPath != "" {
		store, err := openKuzu(cfg.KuzuPath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		a.graphs = store
	}
	return nil
}

func (a *App) load(ctx context.Context) ([]registry.Casier, *depgraph.Graph, error) {
	var (
		casiers []registry.Casier
		graph   *depgraph.Graph
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		casiers, err = a.casiers.ListCasiers(gctx)
		if err != nil {
			return fmt.Errorf("load casiers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		graph, err = depgraph.Load(gctx, a.graphs)
		if err != nil {
			return fmt.Errorf("load dependency graph: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return casiers, graph, nil
}

func (a *App) locker() (orchestrator.Locker, error) {
	cfg := a.Config.Redis
	if cfg.Addr == "" {
		return lock.NewKeyedMutex(), nil
	}
	rl, err := lock.NewRedisLocker(cfg.Addr, cfg.Password, cfg.DB, cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rl)
	return rl, nil
}

func memDirectory(clients []config.ClientConfig) *orchestrator.MemDirectory {
	dir := orchestrator.NewMemDirectory()
	for _, c := range clients {
		dir.AddClient(c.ID, c.Name)
		for _, e := range c.Evaluations {
			dir.AddEvaluation(c.ID, e)
		}
	}
	return dir
}

func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}
