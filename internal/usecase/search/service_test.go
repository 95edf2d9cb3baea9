package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/access"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
)

func newService(cat *mockCatalog) *Service {
	return New(cat, Config{StoreTimeout: 200 * time.Millisecond}, zap.NewNop())
}

func mustRequest(t *testing.T, p request.Params) request.Request {
	t.Helper()
	req, err := request.New(p, request.DefaultLimits())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func facetsFor(fs []facet.Facet, dim filter.Dimension) map[string]int {
	out := map[string]int{}
	for _, f := range fs {
		if f.Dimension() == dim {
			out[f.Value()] = f.Count()
		}
	}
	return out
}

// safetyCorpus: 3 of 5 lessons are tagged Safety, 2 of those on a Lathe.
func safetyCorpus() []document.Document {
	return []document.Document{
		lesson("s1", "Chuck key safety", func(a *document.Attributes) {
			a.Tags = []string{"Safety"}
			a.MachineModel = "Lathe"
		}),
		lesson("s2", "Guard checks", func(a *document.Attributes) {
			a.Tags = []string{"Safety", "Setup"}
			a.MachineModel = "Lathe"
		}),
		lesson("s3", "Mill guards", func(a *document.Attributes) {
			a.Tags = []string{"Safety"}
			a.MachineModel = "Mill"
		}),
		lesson("o1", "Tool offsets", func(a *document.Attributes) {
			a.Tags = []string{"Setup"}
			a.MachineModel = "Lathe"
		}),
		lesson("o2", "Workholding", func(a *document.Attributes) {
			a.Tags = []string{"Fixtures"}
			a.MachineModel = "Mill"
		}),
	}
}

func TestSearch_FacetsOverFilteredSubset(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus()}
	svc := newService(cat)

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{
		Criteria:      filter.Criteria{Tags: []string{"Safety"}},
		IncludeFacets: true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Pagination.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Pagination.Total)
	}

	machines := facetsFor(resp.Facets, filter.MachineModel)
	if machines["Lathe"] != 2 || machines["Mill"] != 1 {
		t.Errorf("machine_model facets = %v, want Lathe:2 Mill:1", machines)
	}

	// The tags dimension is counted with its own predicate removed.
	tags := facetsFor(resp.Facets, filter.Tags)
	if tags["Safety"] != 3 || tags["Setup"] != 2 || tags["Fixtures"] != 1 {
		t.Errorf("tags facets = %v", tags)
	}

	// One base fetch plus one relaxed fetch for the filtered tags dimension.
	if got := cat.callCount(); got != 2 {
		t.Errorf("catalog calls = %d, want 2", got)
	}
}

func TestSearch_FacetMonotonicity(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus()}
	svc := newService(cat)
	ctx := context.Background()

	relaxed, err := svc.Search(ctx, mustRequest(t, request.Params{
		Criteria:      filter.Criteria{Tags: []string{"Safety"}, MachineModel: "Lathe"},
		IncludeFacets: true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for value, relaxedCount := range facetsFor(relaxed.Facets, filter.MachineModel) {
		strict, err := svc.Search(ctx, mustRequest(t, request.Params{
			Criteria: filter.Criteria{Tags: []string{"Safety"}, MachineModel: value},
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if relaxedCount < strict.Pagination.Total {
			t.Errorf("facet %s=%d below strict count %d", value, relaxedCount, strict.Pagination.Total)
		}
	}
}

func TestSearch_FacetsFollowTextQuery(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus()}
	svc := newService(cat)

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{
		Criteria:      filter.Criteria{Query: "guard"},
		IncludeFacets: true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	machines := facetsFor(resp.Facets, filter.MachineModel)
	if machines["Lathe"] != 1 || machines["Mill"] != 1 || len(machines) != 2 {
		t.Errorf("machine_model facets = %v", machines)
	}
	if len(facetsFor(resp.Facets, filter.ToolingType)) != 0 {
		t.Error("empty dimensions must be omitted")
	}
}

func TestSearch_FacetLimit(t *testing.T) {
	var docs []document.Document
	for i := range 5 {
		docs = append(docs, lesson(fmt.Sprintf("d%d", i), "Lesson", func(a *document.Attributes) {
			a.Tags = []string{fmt.Sprintf("tag-%d", i)}
		}))
	}
	svc := New(&mockCatalog{docs: docs}, Config{FacetLimit: 2}, zap.NewNop())

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{IncludeFacets: true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tags := facetsFor(resp.Facets, filter.Tags)
	if len(tags) != 2 || tags["tag-0"] != 1 || tags["tag-1"] != 1 {
		t.Errorf("expected the two smallest values at equal count, got %v", tags)
	}
}

func TestSearch_Pagination(t *testing.T) {
	var docs []document.Document
	for i := range 25 {
		docs = append(docs, lesson(fmt.Sprintf("doc-%02d", i), "Lesson", func(a *document.Attributes) {
			a.CreatedAt = baseTime.Add(-time.Duration(i) * time.Minute)
		}))
	}
	svc := newService(&mockCatalog{docs: docs})

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{Page: 2, Limit: 10}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := resp.Pagination
	if p.Total != 25 || p.TotalPages != 3 || !p.HasNext || !p.HasPrev {
		t.Errorf("pagination = %+v", p)
	}
	if len(resp.Results) != 10 || resp.Results[0].ID() != "doc-10" || resp.Results[9].ID() != "doc-19" {
		t.Errorf("page 2 = %v", ids(resp.Results))
	}
}

func TestSearch_PaginationCompleteness(t *testing.T) {
	var docs []document.Document
	for i := range 23 {
		docs = append(docs, lesson(fmt.Sprintf("doc-%02d", i), "Coolant", func(a *document.Attributes) {
			a.ViewCount = int64(i % 4)
		}))
	}
	svc := newService(&mockCatalog{docs: docs})
	ctx := context.Background()
	params := request.Params{Criteria: filter.Criteria{Query: "coolant"}, Limit: 7}

	full, err := svc.Search(ctx, mustRequest(t, request.Params{Criteria: params.Criteria, Limit: 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var all []string
	for page := 1; ; page++ {
		params.Page = page
		resp, err := svc.Search(ctx, mustRequest(t, params))
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		all = append(all, ids(resp.Results)...)
		if !resp.Pagination.HasNext {
			break
		}
	}
	if !slices.Equal(all, ids(full.Results)) {
		t.Errorf("pages do not reproduce the ranked set:\n%v\n%v", all, ids(full.Results))
	}
}

func TestSearch_FilterSoundnessWithLenientCatalog(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus(), leak: true}
	svc := newService(cat)
	c := filter.Criteria{Tags: []string{"setup"}, MachineModel: "lathe"}

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{Criteria: c}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %v", ids(resp.Results))
	}
	for _, r := range resp.Results {
		if !c.Matches(r.Document()) {
			t.Errorf("%s violates the filters", r.ID())
		}
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	cat := &mockCatalog{}
	svc := New(cat, Config{MaxQueryLength: 5}, zap.NewNop())

	_, err := svc.Search(context.Background(), mustRequest(t, request.Params{
		Criteria: filter.Criteria{Query: "far too long"},
	}))
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if cat.callCount() != 0 {
		t.Error("invalid queries must not reach the catalog")
	}
}

func TestSearch_Permissions(t *testing.T) {
	docs := []document.Document{
		lesson("pub", "Public", nil),
		lesson("org", "Org", func(a *document.Attributes) { a.Visibility = document.VisibilityOrganization }),
		lesson("priv", "Private", func(a *document.Attributes) { a.Visibility = document.VisibilityPrivate }),
		lesson("draft", "Draft", func(a *document.Attributes) { a.Status = document.StatusDraft }),
	}
	svc := newService(&mockCatalog{docs: docs})
	viewer := access.WithPrincipal(context.Background(), access.Principal{ID: "v", Role: access.RoleViewer})

	resp, err := svc.Search(viewer, mustRequest(t, request.Params{SortBy: order.Title}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(ids(resp.Results), []string{"org", "pub"}) {
		t.Errorf("viewer sees %v", ids(resp.Results))
	}

	_, err = svc.Search(viewer, mustRequest(t, request.Params{Criteria: filter.Criteria{Status: "draft"}}))
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	resp, err = svc.Search(context.Background(), mustRequest(t, request.Params{}))
	if err != nil || resp.Pagination.Total != 4 {
		t.Errorf("editor total = %d (%v)", resp.Pagination.Total, err)
	}
}

func TestSearch_RetriesOnce(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus(), errs: []error{errors.New("conn reset")}}
	svc := newService(cat)

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{}))
	if err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if resp.Pagination.Total != 5 || cat.callCount() != 2 {
		t.Errorf("total = %d, calls = %d", resp.Pagination.Total, cat.callCount())
	}
}

func TestSearch_IndexUnavailableAfterRetry(t *testing.T) {
	cat := &mockCatalog{errs: []error{errors.New("down"), errors.New("still down")}}
	svc := newService(cat)

	_, err := svc.Search(context.Background(), mustRequest(t, request.Params{}))
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if cat.callCount() != 2 {
		t.Errorf("calls = %d, want 2", cat.callCount())
	}
}

func TestSearch_Timeout(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus(), delay: time.Second}
	svc := New(cat, Config{StoreTimeout: 20 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err := svc.Search(context.Background(), mustRequest(t, request.Params{}))
	if !errors.Is(err, domain.ErrIndexUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout IndexUnavailable, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Error("search did not honor the store timeout")
	}
}

func TestSearch_CallerCancellationNotRetried(t *testing.T) {
	cat := &mockCatalog{docs: safetyCorpus(), delay: time.Second}
	svc := newService(cat)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := svc.Search(ctx, mustRequest(t, request.Params{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrIndexUnavailable) {
		t.Error("cancellation must not be reported as index failure")
	}
	if cat.callCount() != 1 {
		t.Errorf("calls = %d, want 1", cat.callCount())
	}
}

func TestSearch_InlineSuggestionsAndRecording(t *testing.T) {
	sg := &mockSuggester{out: []suggestion.Suggestion{suggestion.New(suggestion.TypeTag, "safety", 2)}}
	rec := &mockRecorder{}
	svc := newService(&mockCatalog{docs: safetyCorpus()}).WithSuggester(sg).WithRecorder(rec)

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{
		Criteria:           filter.Criteria{Query: "  Guard "},
		IncludeSuggestions: true,
		SessionID:          "sess-1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Suggestions) != 1 || sg.lastPref != "guard" {
		t.Errorf("suggestions = %v, prefix = %q", resp.Suggestions, sg.lastPref)
	}
	if resp.Query != "guard" {
		t.Errorf("Query = %q", resp.Query)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Query != "guard" || ev.ResultCount != 2 || ev.SessionID != "sess-1" || ev.QueryType != "text" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSearch_SuggesterErrorIsNotFatal(t *testing.T) {
	sg := &mockSuggester{err: errors.New("boom")}
	svc := newService(&mockCatalog{docs: safetyCorpus()}).WithSuggester(sg)

	resp, err := svc.Search(context.Background(), mustRequest(t, request.Params{
		Criteria:           filter.Criteria{Query: "guard"},
		IncludeSuggestions: true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Suggestions != nil || len(resp.Results) != 2 {
		t.Errorf("suggestions = %v, results = %v", resp.Suggestions, ids(resp.Results))
	}
}
