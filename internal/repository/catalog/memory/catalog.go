// Package memory is a catalog held entirely in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// Catalog filters an in-memory document set with filter.Criteria.Matches.
type Catalog struct {
	mu   sync.RWMutex
	docs []document.Document
}

// New creates a catalog with the given documents.
func New(docs []document.Document) *Catalog {
	c := &Catalog{}
	c.Replace(docs)
	return c
}

// Replace swaps the document set. Documents are kept ordered by ID.
func (c *Catalog) Replace(docs []document.Document) {
	sorted := make([]document.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	c.mu.Lock()
	c.docs = sorted
	c.mu.Unlock()
}

// Candidates returns every document matching the structured predicates.
func (c *Catalog) Candidates(ctx context.Context, criteria filter.Criteria) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]document.Document, 0, len(c.docs))
	for _, d := range c.docs {
		if criteria.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Len returns the number of documents.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Ping reports the catalog as available.
func (c *Catalog) Ping(context.Context) error { return nil }
