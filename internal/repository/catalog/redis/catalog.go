// Package redis is a catalog stored as hashes in Redis or Valkey and filtered with FT.SEARCH.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/db"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

const (
	// DefaultMaxCandidates caps the hits fetched per query.
	DefaultMaxCandidates = 10000
	loadChunk            = 500
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	Ping(ctx context.Context) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Filter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config names the index and the key namespace.
type Config struct {
	IndexName     string
	KeyPrefix     string // e.g. "mediasearch:"; lessons live under <prefix>lesson:<id>
	MaxCandidates int
}

// Catalog implements the search Catalog contract on top of db.Store.
type Catalog struct {
	store         store
	index         string
	prefix        string
	maxCandidates int
	logger        *zap.Logger
}

// New creates a Redis-backed catalog.
func New(s store, cfg Config, logger *zap.Logger) *Catalog {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	return &Catalog{
		store:         s,
		index:         cfg.IndexName,
		prefix:        cfg.KeyPrefix + "lesson:",
		maxCandidates: cfg.MaxCandidates,
		logger:        logger,
	}
}

// EnsureIndex creates the FT index unless it already exists.
func (c *Catalog) EnsureIndex(ctx context.Context) error {
	exists, err := c.store.IndexExists(ctx, c.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.index, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(c.index, c.prefix)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := c.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", c.index, err)
	}
	c.logger.Info("Catalog index created", zap.String("index", c.index))
	return nil
}

// Load writes documents as hashes in pipelined chunks.
func (c *Catalog) Load(ctx context.Context, docs []document.Document) error {
	for start := 0; start < len(docs); start += loadChunk {
		end := min(start+loadChunk, len(docs))
		items := make([]db.HashSetItem, 0, end-start)
		for _, d := range docs[start:end] {
			items = append(items, db.HashSetItem{Key: c.prefix + d.ID(), Fields: toHash(d)})
		}
		if err := c.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("load lessons %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Candidates pushes the structured predicates down to FT.SEARCH.
func (c *Catalog) Candidates(ctx context.Context, criteria filter.Criteria) ([]document.Document, error) {
	expr, err := criteria.Expression()
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	res, err := c.store.Filter(ctx, &db.FilterQuery{
		IndexName:    c.index,
		Filters:      expr,
		Limit:        c.maxCandidates,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", c.index, err)
	}
	if res.Total > len(res.Entries) {
		c.logger.Warn("Candidate set truncated",
			zap.Int("total", res.Total),
			zap.Int("max_candidates", c.maxCandidates),
		)
	}

	docs := make([]document.Document, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, c.prefix)
		d, err := fromHash(id, e.Fields)
		if err != nil {
			c.logger.Warn("Skipping malformed lesson", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Count returns the number of indexed lessons.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	n, err := c.store.SearchCount(ctx, c.index, "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.index, err)
	}
	return n, nil
}

// Ping checks the underlying connection.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
