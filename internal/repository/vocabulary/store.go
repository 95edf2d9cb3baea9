// Package vocabulary persists suggestion usage counters in Redis.
package vocabulary

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/db"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// store is the consumer interface for counters (ISP).
type store interface {
	Ping(ctx context.Context) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, n int64) error
	ZAddGT(ctx context.Context, key, member string, score float64) error
	ZRangeWithScores(ctx context.Context, key string) ([]db.ScoredMember, error)
}

// Store keeps usage counts in a hash (HINCRBY) and last-use times in a sorted set (ZADD GT),
// both keyed by the vocabulary key. Both writes commute, so concurrent writers never lose updates.
type Store struct {
	store    store
	usageKey string
	lastKey  string
}

// New creates a counter store under the key prefix (e.g. "mediasearch:").
func New(s store, keyPrefix string) *Store {
	return &Store{
		store:    s,
		usageKey: keyPrefix + "vocab:usage",
		lastKey:  keyPrefix + "vocab:last_used",
	}
}

// IncrUsage adds n to the entry's usage and raises its last-use time to at.
func (s *Store) IncrUsage(ctx context.Context, key string, n int64, at time.Time) error {
	if n != 0 {
		if err := s.store.HIncrBy(ctx, s.usageKey, key, n); err != nil {
			return fmt.Errorf("vocabulary HINCRBY %s: %w", key, err)
		}
	}
	if !at.IsZero() {
		if err := s.store.ZAddGT(ctx, s.lastKey, key, float64(at.UnixMilli())); err != nil {
			return fmt.Errorf("vocabulary ZADD %s: %w", key, err)
		}
	}
	return nil
}

// LoadUsage reads every persisted counter. Keys that do not parse are skipped.
func (s *Store) LoadUsage(ctx context.Context) ([]suggestion.Entry, error) {
	counts, err := s.store.HGetAll(ctx, s.usageKey)
	if err != nil {
		return nil, fmt.Errorf("vocabulary HGETALL: %w", err)
	}
	lastUsed, err := s.store.ZRangeWithScores(ctx, s.lastKey)
	if err != nil {
		return nil, fmt.Errorf("vocabulary ZRANGE: %w", err)
	}

	entries := make(map[string]suggestion.Entry, len(counts))
	for key, raw := range counts {
		e, ok := parseKey(key)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		e.UsageCount = n
		entries[key] = e
	}
	for _, m := range lastUsed {
		e, ok := entries[m.Member]
		if !ok {
			if e, ok = parseKey(m.Member); !ok {
				continue
			}
		}
		e.LastUsedAt = time.UnixMilli(int64(m.Score)).UTC()
		entries[m.Member] = e
	}

	out := make([]suggestion.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// parseKey splits "type:value" back into an entry. Values may contain colons.
func parseKey(key string) (suggestion.Entry, bool) {
	t, value, ok := strings.Cut(key, ":")
	if !ok || value == "" {
		return suggestion.Entry{}, false
	}
	typ := suggestion.Type(t)
	if !typ.IsValid() {
		return suggestion.Entry{}, false
	}
	return suggestion.Entry{Type: typ, Value: value}, true
}
