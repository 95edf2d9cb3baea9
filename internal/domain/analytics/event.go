// Package analytics holds the write-once usage records that feed suggestion ranking.
package analytics

import (
	"strings"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// QueryType classifies how a search was issued.
type QueryType string

// Query types.
const (
	QueryTypeText   QueryType = "text"
	QueryTypeFilter QueryType = "filter"
	QueryTypeBrowse QueryType = "browse"
)

// ClassifyQuery derives the query type from the criteria.
func ClassifyQuery(c filter.Criteria) QueryType {
	switch {
	case strings.TrimSpace(c.Query) != "":
		return QueryTypeText
	case c.HasPredicates():
		return QueryTypeFilter
	default:
		return QueryTypeBrowse
	}
}

// Event records one executed search.
type Event struct {
	ID              string
	Query           string
	QueryType       QueryType
	Filters         filter.Criteria
	ResultCount     int
	ExecutionTimeMs int64
	ClickedResultID string
	ClickedPosition *int
	SessionID       string
	Timestamp       time.Time
}

// NormalizedQuery returns the query as vocabulary stores it.
func (e Event) NormalizedQuery() string {
	return NormalizeQuery(e.Query)
}

// Click records a result selection.
type Click struct {
	ID         string
	DocumentID string
	Position   int
	Query      string
	SessionID  string
	Timestamp  time.Time
}

// NormalizedQuery returns the query as vocabulary stores it.
func (c Click) NormalizedQuery() string {
	return NormalizeQuery(c.Query)
}

// NormalizeQuery trims, collapses whitespace and lowercases.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Record is one event log entry. Exactly one of Search or Click is set.
type Record struct {
	Search *Event
	Click  *Click
}
