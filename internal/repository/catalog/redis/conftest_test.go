package redis

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pingFn        func(ctx context.Context) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	filterFn      func(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Filter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	if m.filterFn != nil {
		return m.filterFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func newTestCatalog(t *testing.T) (*Catalog, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	c := New(ms, Config{IndexName: "mediasearch:lessons", KeyPrefix: "mediasearch:"}, zap.NewNop())
	return c, ms
}
