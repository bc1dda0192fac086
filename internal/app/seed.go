package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/casier/internal/config"
	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/pgstore"
	"github.com/dusk-indust/casier/internal/registry"
)

// ErrNothingToSeed is returned by Seed when neither Postgres nor Kuzu is
// configured.
var ErrNothingToSeed = errors.New("nothing to seed: set databaseDsn or kuzuPath")

// Seed copies the YAML catalog, dependency graph and declared clients into
// the persistent backends named by cfg. The graph is validated before
// anything is written.
func Seed(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.DatabaseDSN == "" && cfg.KuzuPath == "" {
		return ErrNothingToSeed
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		casiers []registry.Casier
		file    = depgraph.FileSource{Path: cfg.Graph}
		nodes   []depgraph.Node
		edges   []depgraph.Edge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		casiers, err = registry.LoadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		// Validate before writing.
		_, err = registry.New(casiers)
		return err
	})
	g.Go(func() error {
		var err error
		if nodes, err = file.Nodes(gctx); err != nil {
			return err
		}
		if edges, err = file.Edges(gctx); err != nil {
			return err
		}
		_, err = depgraph.New(nodes, edges)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if cfg.KuzuPath != "" {
		store, err := openKuzu(cfg.KuzuPath)
		if err != nil {
			return err
		}
		err = depgraph.Seed(ctx, store, nodes, edges)
		if cerr := store.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("seed kuzu: %w", err)
		}
		logger.Info("seeded kuzu graph", zap.String("path", cfg.KuzuPath), zap.Int("documentTypes", len(nodes)))
	}

	if cfg.DatabaseDSN == "" {
		return nil
	}
	pg, err := pgstore.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("seed: migrate: %w", err)
	}
	if err := depgraph.Seed(ctx, pg.Graph(), nodes, edges); err != nil {
		return fmt.Errorf("seed postgres graph: %w", err)
	}
	repo := pg.Casiers()
	for _, c := range casiers {
		if err := repo.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seed casier %s: %w", c.Key, err)
		}
	}
	dir := pg.Directory()
	for _, c := range cfg.Clients {
		if err := dir.AddClient(ctx, c.ID, c.Name); err != nil {
			return fmt.Errorf("seed client %d: %w", c.ID, err)
		}
		for _, e := range c.Evaluations {
			if err := dir.AddEvaluation(ctx, c.ID, e); err != nil {
				return fmt.Errorf("seed evaluation %d: %w", e, err)
			}
		}
	}
	logger.Info("seeded postgres",
		zap.Int("casiers", len(casiers)),
		zap.Int("documentTypes", len(nodes)),
		zap.Int("clients", len(cfg.Clients)),
	)
	return nil
}
