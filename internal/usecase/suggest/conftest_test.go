package suggest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

// --- Mocks ---

type incrCall struct {
	key string
	n   int64
	at  time.Time
}

type mockCounterStore struct {
	mu      sync.Mutex
	incrs   []incrCall
	incrErr error
	load    []suggestion.Entry
	loadErr error
}

func (m *mockCounterStore) IncrUsage(_ context.Context, key string, n int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrs = append(m.incrs, incrCall{key: key, n: n, at: at})
	return m.incrErr
}

func (m *mockCounterStore) LoadUsage(_ context.Context) ([]suggestion.Entry, error) {
	return m.load, m.loadErr
}

type mockSource struct {
	docs     []document.Document
	err      error
	criteria filter.Criteria
}

func (m *mockSource) Candidates(_ context.Context, c filter.Criteria) ([]document.Document, error) {
	m.criteria = c
	if m.err != nil {
		return nil, m.err
	}
	var out []document.Document
	for _, d := range m.docs {
		if c.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func values(ss []suggestion.Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Value()
	}
	return out
}

func joined(ss []suggestion.Suggestion) string { return strings.Join(values(ss), ",") }
