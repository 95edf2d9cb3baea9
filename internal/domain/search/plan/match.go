package plan

import (
	"strings"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
)

// Field is a text-matchable document field.
type Field string

// Matchable fields.
const (
	FieldTitle        Field = "title"
	FieldDescription  Field = "description"
	FieldTags         Field = "tags"
	FieldMachineModel Field = "machine_model"
	FieldProcessType  Field = "process_type"
)

// MatchFields lists matchable fields in display order.
var MatchFields = []Field{FieldTitle, FieldDescription, FieldTags, FieldMachineModel, FieldProcessType}

// Hits maps each matched field to the query tokens found in it.
type Hits map[Field][]string

// Has reports whether the field matched at least one token.
func (h Hits) Has(f Field) bool { return len(h[f]) > 0 }

// Match reports which fields of the document contain which query tokens (case-insensitive substring).
// Returns nil when the plan has no query.
func (p Plan) Match(doc document.Document) Hits {
	if !p.HasQuery() {
		return nil
	}
	hits := make(Hits)
	for _, f := range MatchFields {
		texts := fieldTexts(doc, f)
		if len(texts) == 0 {
			continue
		}
		for _, tok := range p.tokens {
			for _, text := range texts {
				if strings.Contains(text, tok) {
					hits[f] = append(hits[f], tok)
					break
				}
			}
		}
	}
	return hits
}

func fieldTexts(doc document.Document, f Field) []string {
	var raw []string
	switch f {
	case FieldTitle:
		raw = []string{doc.Title()}
	case FieldDescription:
		raw = []string{doc.Description()}
	case FieldTags:
		raw = doc.Tags()
	case FieldMachineModel:
		raw = []string{doc.MachineModel()}
	case FieldProcessType:
		raw = []string{doc.ProcessType()}
	}
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}
