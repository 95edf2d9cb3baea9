package result

import (
	"maps"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
)

// Result is a single ranked search hit.
type Result struct {
	doc        document.Document
	score      float64
	highlights map[string]string
}

// New creates a search result. highlights maps a field name to a snippet with matches wrapped in <em>.
func New(doc document.Document, score float64, highlights map[string]string) Result {
	return Result{doc: doc, score: score, highlights: highlights}
}

// ID returns the document identifier.
func (r Result) ID() string { return r.doc.ID() }

// Score returns the relevance score (0 when no query was given).
func (r Result) Score() float64 { return r.score }

// Document returns the underlying document snapshot.
func (r Result) Document() document.Document { return r.doc }

// Highlights returns a copy of the per-field snippets.
func (r Result) Highlights() map[string]string { return maps.Clone(r.highlights) }
