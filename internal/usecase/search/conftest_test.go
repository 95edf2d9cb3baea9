package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// --- Mocks ---

// mockCatalog filters its corpus with the structured predicates, like the in-memory adapter.
type mockCatalog struct {
	mu    sync.Mutex
	docs  []document.Document
	errs  []error // consumed one per call
	delay time.Duration
	calls []filter.Criteria
	// leak returns the whole corpus regardless of criteria.
	leak bool
}

func (m *mockCatalog) Candidates(ctx context.Context, c filter.Criteria) ([]document.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	var err error
	if len(m.errs) > 0 {
		err, m.errs = m.errs[0], m.errs[1:]
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var out []document.Document
	for _, d := range m.docs {
		if m.leak || c.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockSuggester struct {
	out      []suggestion.Suggestion
	err      error
	lastPref string
}

func (m *mockSuggester) Suggest(_ context.Context, prefix string, _ []suggestion.Type, _ int) ([]suggestion.Suggestion, error) {
	m.lastPref = prefix
	return m.out, m.err
}

type mockRecorder struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (m *mockRecorder) RecordSearch(ev analytics.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// --- Fixtures ---

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lesson(id, title string, mod func(*document.Attributes)) document.Document {
	attrs := document.Attributes{Title: title, CreatedAt: baseTime}
	if mod != nil {
		mod(&attrs)
	}
	return document.MustNew(id, attrs)
}
