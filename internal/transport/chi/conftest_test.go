package chi

import (
	"context"
	"sync"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	healthuc "github.com/kailas-cloud/mediasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
	"github.com/kailas-cloud/mediasearch/internal/usecase/session"
)

// --- Mocks ---

type mockSearch struct {
	mu       sync.Mutex
	searchFn func(ctx context.Context, req request.Request) (searchuc.Response, error)
	last     request.Request
	calls    int
}

func (m *mockSearch) Search(ctx context.Context, req request.Request) (searchuc.Response, error) {
	m.mu.Lock()
	m.last = req
	m.calls++
	fn := m.searchFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return sampleResponse(req), nil
}

func (m *mockSearch) Limits() request.Limits {
	return request.Limits{DefaultLimit: 10, MaxLimit: 50}
}

func (m *mockSearch) lastRequest() request.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type mockSuggest struct {
	suggestFn func(ctx context.Context, prefix string, types []suggestion.Type, limit int) ([]suggestion.Suggestion, error)
}

func (m *mockSuggest) Suggest(
	ctx context.Context, prefix string, types []suggestion.Type, limit int,
) ([]suggestion.Suggestion, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, prefix, types, limit)
	}
	return []suggestion.Suggestion{suggestion.New(suggestion.TypeTag, "safety", 1.5)}, nil
}

type mockRecorder struct {
	mu       sync.Mutex
	searches []analytics.Event
	clicks   []analytics.Click
}

func (m *mockRecorder) RecordSearch(ev analytics.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, ev)
}

func (m *mockRecorder) RecordClick(c analytics.Click) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, c)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Fixtures ---

func sampleResponse(req request.Request) searchuc.Response {
	doc := document.MustNew("lesson-1", document.Attributes{
		Title:        "Lathe safety basics",
		Tags:         []string{"Safety"},
		MachineModel: "Lathe",
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	return searchuc.Response{
		Results:       []result.Result{result.New(doc, 2.5, map[string]string{"title": "<em>Lathe</em> safety basics"})},
		Facets:        []facet.Facet{facet.New(filter.MachineModel, "Lathe", 1)},
		Pagination:    pagination.New(req.Page(), req.Limit(), 1),
		ExecutionTime: 3 * time.Millisecond,
		Query:         req.Criteria().Query,
		Criteria:      req.Criteria(),
	}
}

type fixture struct {
	search   *mockSearch
	suggest  *mockSuggest
	recorder *mockRecorder
	health   *mockHealth
	server   *Server
	router   gochi.Router
}

func newFixture() *fixture {
	f := &fixture{
		search:   &mockSearch{},
		suggest:  &mockSuggest{},
		recorder: &mockRecorder{},
		health:   &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"catalog": healthuc.CheckOK}}},
	}
	f.server = NewServer(f.search, f.suggest, f.recorder, f.health, session.Config{Debounce: 10 * time.Millisecond}, zap.NewNop())
	f.router = gochi.NewRouter()
	f.server.Routes(f.router)
	return f
}
