package db

import (
	"context"
	"time"
)

// Store is the database facade used by the Redis-backed catalog and vocabulary stores.
//
//nolint:interfacebloat // facade; consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	SortedSetStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, n int64) error
	Del(ctx context.Context, key string) error
}

// ScoredMember is a sorted set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides the sorted set operations used for last-seen timestamps.
type SortedSetStore interface {
	// ZAddGT sets the member's score only if it is greater than the stored one (ZADD GT).
	ZAddGT(ctx context.Context, key, member string, score float64) error
	ZRangeWithScores(ctx context.Context, key string) ([]ScoredMember, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides filter-only search over FT indexes.
type Searcher interface {
	Filter(ctx context.Context, q *FilterQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
