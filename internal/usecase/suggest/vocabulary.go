package suggest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

const storeWriteTimeout = 2 * time.Second

// MaxEntryLength bounds terms created from observed queries. Catalog terms are not bounded.
const MaxEntryLength = MaxPrefixLength

// Vocabulary is the set of known suggestion terms with their usage counters.
// It is the only state shared across sessions. Reads and increments are in-memory;
// increments are written behind to the store when one is attached.
type Vocabulary struct {
	mu      sync.RWMutex
	entries map[string]suggestion.Entry
	store   CounterStore
	logger  *zap.Logger
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary(logger *zap.Logger) *Vocabulary {
	return &Vocabulary{
		entries: make(map[string]suggestion.Entry),
		logger:  logger,
	}
}

// WithStore attaches a persistence store and loads the persisted counters.
func (v *Vocabulary) WithStore(ctx context.Context, store CounterStore) *Vocabulary {
	v.store = store
	if err := v.Reload(ctx); err != nil {
		v.logger.Warn("Failed to load vocabulary counters from store", zap.Error(err))
	}
	return v
}

// Reload merges the persisted counters into memory. Merging keeps the larger counter and
// the later last-use time, so a reload never loses local increments that were already written.
func (v *Vocabulary) Reload(ctx context.Context) error {
	if v.store == nil {
		return nil
	}
	entries, err := v.store.LoadUsage(ctx)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	v.Merge(entries)
	v.logger.Debug("Vocabulary counters loaded", zap.Int("entries", len(entries)))
	return nil
}

// Register adds terms that are not known yet. Existing counters are kept.
func (v *Vocabulary) Register(entries ...suggestion.Entry) {
	v.mu.Lock()
	for _, e := range entries {
		e.Value = strings.TrimSpace(e.Value)
		if e.Value == "" || !e.Type.IsValid() {
			continue
		}
		cur, ok := v.entries[e.Key()]
		if !ok {
			v.entries[e.Key()] = e
			continue
		}
		// Persisted keys are case-folded; prefer the catalog spelling for display.
		if cur.Value != e.Value && cur.Value == strings.ToLower(cur.Value) {
			cur.Value = e.Value
			v.entries[e.Key()] = cur
		}
	}
	n := len(v.entries)
	v.mu.Unlock()
	metrics.VocabularyEntries.Set(float64(n))
}

// Merge folds observations into the vocabulary using suggestion.Entry.Merge.
func (v *Vocabulary) Merge(entries []suggestion.Entry) {
	v.mu.Lock()
	for _, e := range entries {
		if e.Value == "" || !e.Type.IsValid() {
			continue
		}
		if cur, ok := v.entries[e.Key()]; ok {
			v.entries[e.Key()] = cur.Merge(e)
			continue
		}
		v.entries[e.Key()] = e
	}
	n := len(v.entries)
	v.mu.Unlock()
	metrics.VocabularyEntries.Set(float64(n))
}

// Increment adds n uses of a term at the given time, creating the entry if needed.
// Unknown terms longer than MaxEntryLength are dropped.
func (v *Vocabulary) Increment(t suggestion.Type, value string, n int64, at time.Time) {
	v.increment(t, value, n, at, true)
}

// IncrementExisting adds n uses only if the term is already known. It reports whether it did.
func (v *Vocabulary) IncrementExisting(t suggestion.Type, value string, n int64, at time.Time) bool {
	return v.increment(t, value, n, at, false)
}

func (v *Vocabulary) increment(t suggestion.Type, value string, n int64, at time.Time, create bool) bool {
	value = strings.TrimSpace(value)
	if value == "" || n <= 0 || !t.IsValid() {
		return false
	}
	if create && utf8.RuneCountInString(value) > MaxEntryLength {
		return false
	}
	key := suggestion.KeyOf(t, value)

	v.mu.Lock()
	e, ok := v.entries[key]
	if !ok {
		if !create {
			v.mu.Unlock()
			return false
		}
		e = suggestion.Entry{Type: t, Value: value}
	}
	e.UsageCount += n
	if at.After(e.LastUsedAt) {
		e.LastUsedAt = at
	}
	v.entries[key] = e
	size := len(v.entries)
	store := v.store
	v.mu.Unlock()

	metrics.VocabularyEntries.Set(float64(size))
	if store == nil {
		return true
	}

	// Write-behind with a detached context: the caller is a background worker.
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()
	if err := store.IncrUsage(ctx, key, n, at); err != nil {
		v.logger.Warn("Failed to persist vocabulary usage", zap.String("key", key), zap.Error(err))
	}
	return true
}

// Lookup returns the entry for a term.
func (v *Vocabulary) Lookup(t suggestion.Type, value string) (suggestion.Entry, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[suggestion.KeyOf(t, value)]
	return e, ok
}

// Snapshot copies the entries of the given types (all types when empty).
func (v *Vocabulary) Snapshot(types []suggestion.Type) []suggestion.Entry {
	var want map[suggestion.Type]bool
	if len(types) > 0 {
		want = make(map[suggestion.Type]bool, len(types))
		for _, t := range types {
			want[t] = true
		}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]suggestion.Entry, 0, len(v.entries))
	for _, e := range v.entries {
		if want == nil || want[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Ping checks the counter store. A vocabulary without a store is always healthy.
func (v *Vocabulary) Ping(ctx context.Context) error {
	if v.store == nil {
		return nil
	}
	if p, ok := v.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx) //nolint:wrapcheck // health probe
	}
	return nil
}

// Bootstrap registers the terms of every document a viewer could find:
// tags, machine models, process types, authors and titles. It returns the number of documents read.
func (v *Vocabulary) Bootstrap(ctx context.Context, src DocumentSource) (int, error) {
	docs, err := src.Candidates(ctx, filter.Criteria{Status: string(document.StatusPublished)})
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}

	var entries []suggestion.Entry
	read := 0
	for _, d := range docs {
		if d.Status() != document.StatusPublished || d.Visibility() == document.VisibilityPrivate {
			continue
		}
		read++
		for _, tag := range d.Tags() {
			entries = append(entries, suggestion.Entry{Type: suggestion.TypeTag, Value: tag})
		}
		entries = append(entries,
			suggestion.Entry{Type: suggestion.TypeMachineModel, Value: d.MachineModel()},
			suggestion.Entry{Type: suggestion.TypeProcessType, Value: d.ProcessType()},
			suggestion.Entry{Type: suggestion.TypeAuthor, Value: d.Author()},
			suggestion.Entry{Type: suggestion.TypeTitle, Value: d.Title()},
		)
	}
	v.Register(entries...)
	return read, nil
}
