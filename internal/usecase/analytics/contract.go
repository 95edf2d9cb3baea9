package analytics

import (
	"context"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// EventLog is the append-only sink for analytics records.
type EventLog interface {
	AppendSearch(ctx context.Context, ev analytics.Event) error
	AppendClick(ctx context.Context, c analytics.Click) error
}

// Vocabulary receives commutative usage increments.
type Vocabulary interface {
	Increment(t suggestion.Type, value string, n int64, at time.Time)
	IncrementExisting(t suggestion.Type, value string, n int64, at time.Time) bool
}

// Replayer iterates a stored event log in append order.
type Replayer interface {
	Replay(ctx context.Context, fn func(analytics.Record) error) error
}
