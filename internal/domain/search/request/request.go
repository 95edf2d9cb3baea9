package request

import (
	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
)

// Paging limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 10000
)

// Limits bounds the page size.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits returns the built-in page size bounds.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit}
}

// Params are the raw, caller-supplied search parameters.
type Params struct {
	Criteria           filter.Criteria
	SortBy             order.Field
	SortOrder          order.Direction
	Page               int
	Limit              int
	IncludeFacets      bool
	IncludeSuggestions bool
	SessionID          string
}

// Request is a validated search request.
type Request struct {
	params Params
}

// New validates and normalizes search parameters.
// Defaults: sort_by=relevance, sort_order per field, page=1, limit=lim.DefaultLimit.
// Limit is clamped to lim.MaxLimit. Criteria are validated later by the query compiler.
func New(p Params, lim Limits) (Request, error) {
	if lim.DefaultLimit <= 0 {
		lim.DefaultLimit = DefaultLimit
	}
	if lim.MaxLimit <= 0 {
		lim.MaxLimit = MaxLimit
	}

	if p.SortBy == "" {
		p.SortBy = order.Relevance
	}
	if !p.SortBy.IsValid() {
		return Request{}, domain.InvalidQuery("invalid sort_by %q", p.SortBy)
	}
	if p.SortOrder == "" {
		p.SortOrder = p.SortBy.DefaultDirection()
	}
	if !p.SortOrder.IsValid() {
		return Request{}, domain.InvalidQuery("invalid sort_order %q", p.SortOrder)
	}

	switch {
	case p.Page < 0:
		return Request{}, domain.InvalidQuery("page must be positive")
	case p.Page == 0:
		p.Page = 1
	case p.Page > MaxPage:
		return Request{}, domain.InvalidQuery("page too large (max %d)", MaxPage)
	}

	switch {
	case p.Limit < 0:
		return Request{}, domain.InvalidQuery("limit must be positive")
	case p.Limit == 0:
		p.Limit = lim.DefaultLimit
	case p.Limit > lim.MaxLimit:
		p.Limit = lim.MaxLimit
	}

	return Request{params: p}, nil
}

// Criteria returns the raw criteria.
func (r Request) Criteria() filter.Criteria { return r.params.Criteria }

// SortBy returns the sort field.
func (r Request) SortBy() order.Field { return r.params.SortBy }

// SortOrder returns the sort direction.
func (r Request) SortOrder() order.Direction { return r.params.SortOrder }

// Page returns the 1-based page number.
func (r Request) Page() int { return r.params.Page }

// Limit returns the page size.
func (r Request) Limit() int { return r.params.Limit }

// Offset returns the index of the first result on the page.
func (r Request) Offset() int { return (r.params.Page - 1) * r.params.Limit }

// IncludeFacets reports whether facet counts were requested.
func (r Request) IncludeFacets() bool { return r.params.IncludeFacets }

// IncludeSuggestions reports whether inline suggestions were requested.
func (r Request) IncludeSuggestions() bool { return r.params.IncludeSuggestions }

// SessionID returns the originating session, if any.
func (r Request) SessionID() string { return r.params.SessionID }

// Params returns the normalized parameters.
func (r Request) Params() Params { return r.params }
