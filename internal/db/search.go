package db

import "github.com/kailas-cloud/mediasearch/internal/domain/search/filter"

// FilterQuery is the input for a structured, unscored FT.SEARCH.
// An empty filter matches every document in the index.
type FilterQuery struct {
	IndexName    string
	Filters      filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
