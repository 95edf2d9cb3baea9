package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
)

// Weights are the per-field relevance contributions. A field contributes at most once.
type Weights struct {
	Title        float64
	Description  float64
	Tags         float64
	MachineModel float64
	ProcessType  float64
}

// DefaultWeights returns the built-in field weights.
func DefaultWeights() Weights {
	return Weights{Title: 10, Description: 5, Tags: 3, MachineModel: 2, ProcessType: 2}
}

func (w Weights) of(f plan.Field) float64 {
	switch f {
	case plan.FieldTitle:
		return w.Title
	case plan.FieldDescription:
		return w.Description
	case plan.FieldTags:
		return w.Tags
	case plan.FieldMachineModel:
		return w.MachineModel
	case plan.FieldProcessType:
		return w.ProcessType
	}
	return 0
}

// scored is a ranking candidate before pagination.
type scored struct {
	doc   document.Document
	score float64
	hits  plan.Hits
}

// Scorer decides text inclusion and relevance for one plan.
type Scorer struct {
	plan    plan.Plan
	weights Weights
	floor   float64
}

// NewScorer creates a scorer. floor is the minimum score a document needs to be included;
// a positive score is always required when the plan has a query.
func NewScorer(p plan.Plan, w Weights, floor float64) Scorer {
	return Scorer{plan: p, weights: w, floor: floor}
}

// Score returns the document's relevance and the fields that matched.
func (s Scorer) Score(doc document.Document) (float64, plan.Hits) {
	hits := s.plan.Match(doc)
	var total float64
	for _, f := range plan.MatchFields {
		if hits.Has(f) {
			total += s.weights.of(f)
		}
	}
	return total, hits
}

// Included reports whether a score passes the text filter.
func (s Scorer) Included(score float64) bool {
	if !s.plan.HasQuery() {
		return true
	}
	return score > 0 && score >= s.floor
}

// Rank scores, filters and orders documents. Documents are expected to have passed the
// structured predicates already. The returned order is total and deterministic.
func Rank(p plan.Plan, docs []document.Document, by order.Field, dir order.Direction, w Weights, floor float64) []result.Result {
	ranked := rank(NewScorer(p, w, floor), docs, by, dir)
	out := make([]result.Result, len(ranked))
	for i, c := range ranked {
		out[i] = toResult(c)
	}
	return out
}

func rank(s Scorer, docs []document.Document, by order.Field, dir order.Direction) []scored {
	out := make([]scored, 0, len(docs))
	for _, d := range docs {
		score, hits := s.Score(d)
		if !s.Included(score) {
			continue
		}
		out = append(out, scored{doc: d, score: score, hits: hits})
	}
	hasQuery := s.plan.HasQuery()
	slices.SortStableFunc(out, func(a, b scored) int {
		return compare(a, b, by, dir, hasQuery)
	})
	return out
}

func compare(a, b scored, by order.Field, dir order.Direction, hasQuery bool) int {
	if by == order.Relevance || by == "" {
		return compareRelevance(a, b, hasQuery)
	}

	var c int
	switch by {
	case order.CreatedAt:
		c = a.doc.CreatedAt().Compare(b.doc.CreatedAt())
	case order.ViewCount:
		c = cmp.Compare(a.doc.ViewCount(), b.doc.ViewCount())
	case order.Title:
		c = strings.Compare(strings.ToLower(a.doc.Title()), strings.ToLower(b.doc.Title()))
		if c == 0 {
			c = strings.Compare(a.doc.Title(), b.doc.Title())
		}
	}
	if dir == order.Desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.doc.ID(), b.doc.ID())
}

// compareRelevance: score desc, views desc, newest first, id asc.
// Without a query every score is zero and the order degrades to newest first.
func compareRelevance(a, b scored, hasQuery bool) int {
	if hasQuery {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.doc.ViewCount(), a.doc.ViewCount()); c != 0 {
			return c
		}
	}
	if c := b.doc.CreatedAt().Compare(a.doc.CreatedAt()); c != 0 {
		return c
	}
	return strings.Compare(a.doc.ID(), b.doc.ID())
}

func toResult(c scored) result.Result {
	return result.New(c.doc, c.score, Highlight(c.doc, c.hits))
}
