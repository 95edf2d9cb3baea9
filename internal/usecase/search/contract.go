package search

import (
	"context"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// Catalog returns the documents satisfying the structured predicates of the criteria.
// The free-text query is ignored; text matching and ranking happen in this package.
type Catalog interface {
	Candidates(ctx context.Context, criteria filter.Criteria) ([]document.Document, error)
}

// Suggester produces inline suggestions for a search response.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, types []suggestion.Type, limit int) ([]suggestion.Suggestion, error)
}

// Recorder observes executed searches. It must not block.
type Recorder interface {
	RecordSearch(ev analytics.Event)
}
