package facet

import (
	"cmp"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// Facet is the number of matching documents carrying one value of a dimension.
type Facet struct {
	dimension filter.Dimension
	value     string
	count     int
}

// New creates a facet count.
func New(dimension filter.Dimension, value string, count int) Facet {
	return Facet{dimension: dimension, value: value, count: count}
}

// Dimension returns the facet dimension.
func (f Facet) Dimension() filter.Dimension { return f.dimension }

// Value returns the dimension value.
func (f Facet) Value() string { return f.value }

// Count returns the number of documents.
func (f Facet) Count() int { return f.count }

// Compare orders facets within a dimension: count desc, then value asc.
func Compare(a, b Facet) int {
	if c := cmp.Compare(b.count, a.count); c != 0 {
		return c
	}
	return cmp.Compare(a.value, b.value)
}
