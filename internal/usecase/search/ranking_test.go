package search

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
)

func mustPlan(t *testing.T, c filter.Criteria) plan.Plan {
	t.Helper()
	p, err := plan.NewCompiler(0, 0).Compile(c)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func ids(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID()
	}
	return out
}

func TestRank_TitleMatchWins(t *testing.T) {
	docs := []document.Document{
		lesson("A", "CNC Mill Setup", nil),
		lesson("B", "Lathe Safety Check", nil),
		lesson("C", "Grinder Maintenance", nil),
	}
	p := mustPlan(t, filter.Criteria{Query: "CNC mill"})

	got := Rank(p, docs, order.Relevance, order.Desc, DefaultWeights(), 0)
	if len(got) != 1 {
		t.Fatalf("expected only A, got %v", ids(got))
	}
	if got[0].ID() != "A" || got[0].Score() <= 0 {
		t.Errorf("result[0] = %s score %f", got[0].ID(), got[0].Score())
	}
	if got[0].Score() != 10 {
		t.Errorf("title weight counts once per field, score = %f", got[0].Score())
	}
}

func TestRank_FieldWeightsAdd(t *testing.T) {
	doc := lesson("A", "Spindle Warmup", func(a *document.Attributes) {
		a.Description = "Warm the spindle before cutting"
		a.Tags = []string{"spindle"}
		a.MachineModel = "Haas spindle kit"
		a.ProcessType = "milling"
	})
	p := mustPlan(t, filter.Criteria{Query: "spindle"})

	got := Rank(p, []document.Document{doc}, order.Relevance, order.Desc, DefaultWeights(), 0)
	if len(got) != 1 || got[0].Score() != 10+5+3+2 {
		t.Fatalf("score = %v", got)
	}
	h := got[0].Highlights()
	if h["title"] != "<em>Spindle</em> Warmup" {
		t.Errorf("title highlight = %q", h["title"])
	}
	if _, ok := h["process_type"]; ok {
		t.Error("unmatched field must not be highlighted")
	}
}

func TestRank_RelevanceFloor(t *testing.T) {
	docs := []document.Document{
		lesson("A", "Coolant basics", nil),
		lesson("B", "Other", func(a *document.Attributes) { a.Tags = []string{"coolant"} }),
	}
	p := mustPlan(t, filter.Criteria{Query: "coolant"})

	got := Rank(p, docs, order.Relevance, order.Desc, DefaultWeights(), 5)
	if !slices.Equal(ids(got), []string{"A"}) {
		t.Errorf("floor 5 should drop the tag-only match, got %v", ids(got))
	}
}

func TestRank_TieBreakChain(t *testing.T) {
	docs := []document.Document{
		lesson("d", "Drill press", func(a *document.Attributes) { a.ViewCount = 5 }),
		lesson("c", "Drill press", func(a *document.Attributes) { a.ViewCount = 5 }),
		lesson("b", "Drill press", func(a *document.Attributes) {
			a.ViewCount = 5
			a.CreatedAt = baseTime.Add(time.Hour)
		}),
		lesson("a", "Drill press", func(a *document.Attributes) { a.ViewCount = 9 }),
	}
	p := mustPlan(t, filter.Criteria{Query: "drill"})

	got := Rank(p, docs, order.Relevance, order.Asc, DefaultWeights(), 0)
	want := []string{"a", "b", "c", "d"}
	if !slices.Equal(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestRank_BrowseFallsBackToNewest(t *testing.T) {
	docs := []document.Document{
		lesson("old", "Old", func(a *document.Attributes) { a.CreatedAt = baseTime.Add(-time.Hour) }),
		lesson("new", "New", func(a *document.Attributes) { a.CreatedAt = baseTime.Add(time.Hour) }),
		lesson("mid", "Mid", nil),
	}
	got := Rank(mustPlan(t, filter.Criteria{}), docs, order.Relevance, order.Desc, DefaultWeights(), 0)
	if !slices.Equal(ids(got), []string{"new", "mid", "old"}) {
		t.Errorf("order = %v", ids(got))
	}
	for _, r := range got {
		if r.Score() != 0 || r.Highlights() != nil {
			t.Errorf("browse result %s has score %f highlights %v", r.ID(), r.Score(), r.Highlights())
		}
	}
}

func TestRank_ExplicitSorts(t *testing.T) {
	docs := []document.Document{
		lesson("1", "beta", func(a *document.Attributes) { a.ViewCount = 3 }),
		lesson("2", "Alpha", func(a *document.Attributes) { a.ViewCount = 7 }),
		lesson("3", "alpha", func(a *document.Attributes) { a.ViewCount = 3 }),
	}
	p := mustPlan(t, filter.Criteria{})

	tests := []struct {
		by   order.Field
		dir  order.Direction
		want []string
	}{
		{order.Title, order.Asc, []string{"2", "3", "1"}},
		{order.Title, order.Desc, []string{"1", "3", "2"}},
		{order.ViewCount, order.Desc, []string{"2", "1", "3"}},
		{order.ViewCount, order.Asc, []string{"1", "3", "2"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.by, tt.dir), func(t *testing.T) {
			got := Rank(p, docs, tt.by, tt.dir, DefaultWeights(), 0)
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("order = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestRank_Deterministic(t *testing.T) {
	var docs []document.Document
	for i := range 40 {
		docs = append(docs, lesson(fmt.Sprintf("doc-%02d", i), "Tool change", func(a *document.Attributes) {
			a.ViewCount = int64(i % 3)
			a.CreatedAt = baseTime.Add(time.Duration(i%4) * time.Hour)
		}))
	}
	p := mustPlan(t, filter.Criteria{Query: "tool"})

	first := ids(Rank(p, docs, order.Relevance, order.Desc, DefaultWeights(), 0))
	reversed := slices.Clone(docs)
	slices.Reverse(reversed)
	second := ids(Rank(p, reversed, order.Relevance, order.Desc, DefaultWeights(), 0))
	if !slices.Equal(first, second) {
		t.Errorf("ranking depends on input order:\n%v\n%v", first, second)
	}
}
