package suggest

import (
	"context"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// CounterStore persists vocabulary usage counters.
// IncrUsage must be commutative: concurrent calls add up, last use keeps the maximum.
type CounterStore interface {
	IncrUsage(ctx context.Context, key string, n int64, at time.Time) error
	LoadUsage(ctx context.Context) ([]suggestion.Entry, error)
}

// DocumentSource lists catalog documents for vocabulary bootstrap.
type DocumentSource interface {
	Candidates(ctx context.Context, criteria filter.Criteria) ([]document.Document, error)
}
