package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/config"
	dbRedis "github.com/kailas-cloud/mediasearch/internal/db/redis"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/repository/catalog"
	blevecatalog "github.com/kailas-cloud/mediasearch/internal/repository/catalog/bleve"
	"github.com/kailas-cloud/mediasearch/internal/repository/catalog/memory"
	rediscatalog "github.com/kailas-cloud/mediasearch/internal/repository/catalog/redis"
	healthuc "github.com/kailas-cloud/mediasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

// catalogBackend is what the composition root needs from any catalog driver.
type catalogBackend interface {
	searchuc.Catalog
	healthuc.Pinger
}

// loadSeed reads the seed file. An empty path yields an empty catalog.
func loadSeed(path string) ([]document.Document, error) {
	if path == "" {
		return nil, nil
	}
	docs, err := catalog.LoadSeed(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	return docs, nil
}

// buildCatalog picks the catalog driver. The returned closer releases driver resources.
func buildCatalog(
	ctx context.Context,
	cfg config.Config,
	store *dbRedis.Store,
	docs []document.Document,
	logger *zap.Logger,
) (catalogBackend, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return memory.New(docs), func() {}, nil

	case config.DriverBleve:
		c, err := blevecatalog.New(cfg.Catalog.MaxCandidates, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create bleve catalog: %w", err)
		}
		if err := c.Load(docs); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("index catalog: %w", err)
		}
		return c, func() { _ = c.Close() }, nil

	case config.DriverRedis, config.DriverValkey:
		c := rediscatalog.New(store, rediscatalog.Config{
			IndexName:     cfg.Catalog.IndexName,
			KeyPrefix:     cfg.Catalog.KeyPrefix,
			MaxCandidates: cfg.Catalog.MaxCandidates,
		}, logger)
		if err := c.EnsureIndex(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure index: %w", err)
		}
		if err := c.Load(ctx, docs); err != nil {
			return nil, nil, fmt.Errorf("load catalog: %w", err)
		}
		return c, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.Database.Driver)
}
