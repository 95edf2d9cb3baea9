// Package bleve is an embedded catalog that pushes structured filters down to an in-memory bleve index.
package bleve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// DefaultMaxCandidates caps the hits fetched per query.
const DefaultMaxCandidates = 10000

// keywordFields are indexed verbatim (lowercased) for exact term filters.
var keywordFields = []filter.Dimension{
	filter.Tags,
	filter.MachineModel,
	filter.ProcessType,
	filter.ToolingType,
	filter.SkillLevel,
	filter.Status,
	filter.Visibility,
}

// Catalog keeps documents in memory and resolves candidate sets through a bleve index.
type Catalog struct {
	mu            sync.RWMutex
	index         blevesearch.Index
	docs          map[string]document.Document
	maxCandidates int
	logger        *zap.Logger
}

// New creates an empty catalog backed by a memory-only bleve index.
func New(maxCandidates int, logger *zap.Logger) (*Catalog, error) {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	idx, err := blevesearch.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Catalog{
		index:         idx,
		docs:          make(map[string]document.Document),
		maxCandidates: maxCandidates,
		logger:        logger,
	}, nil
}

// buildMapping indexes only the filterable attributes.
func buildMapping() mapping.IndexMapping {
	indexMapping := blevesearch.NewIndexMapping()

	lessonMapping := blevesearch.NewDocumentMapping()
	lessonMapping.Dynamic = false

	for _, d := range keywordFields {
		f := blevesearch.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = false
		f.IncludeTermVectors = false
		lessonMapping.AddFieldMappingsAt(string(d), f)
	}

	for _, name := range []string{filter.FieldDurationSeconds, filter.FieldCreatedAt} {
		f := blevesearch.NewNumericFieldMapping()
		f.Store = false
		lessonMapping.AddFieldMappingsAt(name, f)
	}

	indexMapping.DefaultMapping = lessonMapping
	return indexMapping
}

// Load indexes the documents in one batch, replacing documents with the same ID.
func (c *Catalog) Load(docs []document.Document) error {
	batch := c.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID(), indexFields(d)); err != nil {
			return fmt.Errorf("index %s: %w", d.ID(), err)
		}
	}
	if err := c.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve batch: %w", err)
	}

	c.mu.Lock()
	for _, d := range docs {
		c.docs[d.ID()] = d
	}
	c.mu.Unlock()

	c.logger.Debug("Catalog documents indexed", zap.Int("count", len(docs)))
	return nil
}

func indexFields(d document.Document) map[string]any {
	fields := map[string]any{
		filter.FieldDurationSeconds: float64(d.DurationSeconds()),
		filter.FieldCreatedAt:       float64(d.CreatedAt().UnixMilli()),
	}
	for _, dim := range keywordFields {
		vals := dim.Values(d)
		if len(vals) == 0 {
			continue
		}
		lower := make([]string, len(vals))
		for i, v := range vals {
			lower[i] = strings.ToLower(v)
		}
		fields[string(dim)] = lower
	}
	return fields
}

// Candidates returns the documents matching the structured predicates, ordered by ID.
func (c *Catalog) Candidates(ctx context.Context, criteria filter.Criteria) ([]document.Document, error) {
	expr, err := criteria.Expression()
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	req := blevesearch.NewSearchRequestOptions(buildQuery(expr), c.maxCandidates, 0, false)
	req.SortBy([]string{"_id"})

	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	if res.Total > uint64(len(res.Hits)) {
		c.logger.Warn("Candidate set truncated",
			zap.Uint64("total", res.Total),
			zap.Int("max_candidates", c.maxCandidates),
		)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]document.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if d, ok := c.docs[hit.ID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// buildQuery translates the filter expression into a bleve boolean query.
func buildQuery(expr filter.Expression) query.Query {
	if expr.IsEmpty() {
		return blevesearch.NewMatchAllQuery()
	}

	q := blevesearch.NewBooleanQuery()
	for _, cond := range expr.Must() {
		q.AddMust(buildCondition(cond))
	}
	if len(expr.Must()) == 0 {
		q.AddMust(blevesearch.NewMatchAllQuery())
	}
	for _, cond := range expr.MustNot() {
		q.AddMustNot(buildCondition(cond))
	}
	return q
}

func buildCondition(cond filter.Condition) query.Query {
	if cond.IsRange() {
		return buildRange(cond.Key(), *cond.Range())
	}

	values := cond.Values()
	if len(values) == 1 {
		return term(cond.Key(), values[0])
	}
	terms := make([]query.Query, len(values))
	for i, v := range values {
		terms[i] = term(cond.Key(), v)
	}
	return blevesearch.NewDisjunctionQuery(terms...)
}

func term(field, value string) query.Query {
	q := blevesearch.NewTermQuery(value)
	q.SetField(field)
	return q
}

func buildRange(field string, r filter.Range) query.Query {
	var minVal, maxVal *float64
	minInclusive, maxInclusive := false, false

	if r.GT() != nil {
		minVal = r.GT()
	} else if r.GTE() != nil {
		minVal, minInclusive = r.GTE(), true
	}
	if r.LT() != nil {
		maxVal = r.LT()
	} else if r.LTE() != nil {
		maxVal, maxInclusive = r.LTE(), true
	}

	q := blevesearch.NewNumericRangeInclusiveQuery(minVal, maxVal, &minInclusive, &maxInclusive)
	q.SetField(field)
	return q
}

// Len returns the number of indexed documents.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Ping checks that the index is open.
func (c *Catalog) Ping(context.Context) error {
	if _, err := c.index.DocCount(); err != nil {
		return fmt.Errorf("bleve index: %w", err)
	}
	return nil
}

// Close releases the index.
func (c *Catalog) Close() error {
	return c.index.Close()
}
