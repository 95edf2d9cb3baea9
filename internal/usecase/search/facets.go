package search

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/mediasearch/internal/domain/access"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

// DefaultFacetLimit caps the number of values returned per dimension.
const DefaultFacetLimit = 20

// aggregate counts facet values per dimension. For a filtered dimension the counts come from the
// candidate set with that dimension's own predicate removed, so sibling values stay visible.
// Unfiltered dimensions reuse base, the already admitted candidate set.
func (s *Service) aggregate(
	ctx context.Context, who access.Principal, p plan.Plan, base []document.Document,
) ([]facet.Facet, error) {
	criteria := p.Criteria()
	scorer := NewScorer(p, s.cfg.Weights, s.cfg.RelevanceFloor)

	sets := make([][]document.Document, len(filter.FacetDimensions))
	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range filter.FacetDimensions {
		if !criteria.Has(dim) {
			sets[i] = base
			continue
		}
		relaxed := criteria.Without(dim)
		g.Go(func() error {
			metrics.FacetRefetchesTotal.WithLabelValues(string(dim)).Inc()
			docs, err := s.fetch(gctx, relaxed)
			if err != nil {
				return err
			}
			sets[i] = admit(who, relaxed, docs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []facet.Facet
	for i, dim := range filter.FacetDimensions {
		out = append(out, countDimension(dim, sets[i], scorer, s.facetLimit())...)
	}
	return out, nil
}

func (s *Service) facetLimit() int {
	if s.cfg.FacetLimit <= 0 {
		return DefaultFacetLimit
	}
	return s.cfg.FacetLimit
}

// countDimension counts text-matching documents per value, case-insensitively.
// The displayed spelling is the lexicographically smallest one seen.
func countDimension(dim filter.Dimension, docs []document.Document, scorer Scorer, limit int) []facet.Facet {
	type bucket struct {
		value string
		count int
	}
	buckets := make(map[string]*bucket)
	for _, d := range docs {
		if score, _ := scorer.Score(d); !scorer.Included(score) {
			continue
		}
		for _, v := range dim.Values(d) {
			k := strings.ToLower(v)
			b, ok := buckets[k]
			if !ok {
				buckets[k] = &bucket{value: v, count: 1}
				continue
			}
			b.count++
			if v < b.value {
				b.value = v
			}
		}
	}
	if len(buckets) == 0 {
		return nil
	}

	out := make([]facet.Facet, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, facet.New(dim, b.value, b.count))
	}
	slices.SortFunc(out, facet.Compare)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
