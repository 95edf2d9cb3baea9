package search

import (
	"html"
	"strings"
	"unicode"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/plan"
)

const (
	snippetRunes   = 160
	snippetContext = 40
	openTag        = "<em>"
	closeTag       = "</em>"
)

// Highlight builds one snippet per matched field with the matched tokens wrapped in <em> tags.
// Text outside the tags is HTML-escaped. Long fields are cut to a window around the first match.
func Highlight(doc document.Document, hits plan.Hits) map[string]string {
	if len(hits) == 0 {
		return nil
	}
	out := make(map[string]string, len(hits))
	for _, f := range plan.MatchFields {
		if !hits.Has(f) {
			continue
		}
		text := fieldText(doc, f)
		if text == "" {
			continue
		}
		out[string(f)] = mark(text, hits[f])
	}
	return out
}

func fieldText(doc document.Document, f plan.Field) string {
	switch f {
	case plan.FieldTitle:
		return doc.Title()
	case plan.FieldDescription:
		return doc.Description()
	case plan.FieldTags:
		return strings.Join(doc.Tags(), ", ")
	case plan.FieldMachineModel:
		return doc.MachineModel()
	case plan.FieldProcessType:
		return doc.ProcessType()
	}
	return ""
}

func mark(text string, tokens []string) string {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	marked := make([]bool, len(runes))
	first := -1
	for _, tok := range tokens {
		tr := []rune(tok)
		if len(tr) == 0 {
			continue
		}
		for i := 0; i+len(tr) <= len(lower); i++ {
			if !hasPrefix(lower[i:], tr) {
				continue
			}
			for j := i; j < i+len(tr); j++ {
				marked[j] = true
			}
			if first < 0 || i < first {
				first = i
			}
		}
	}

	start, end := 0, len(runes)
	if len(runes) > snippetRunes {
		if first > snippetContext {
			start = first - snippetContext
		}
		end = min(start+snippetRunes, len(runes))
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	open := false
	seg := start
	flush := func(i int) {
		b.WriteString(html.EscapeString(string(runes[seg:i])))
		seg = i
	}
	for i := start; i < end; i++ {
		if marked[i] != open {
			flush(i)
			if marked[i] {
				b.WriteString(openTag)
			} else {
				b.WriteString(closeTag)
			}
			open = marked[i]
		}
	}
	flush(end)
	if open {
		b.WriteString(closeTag)
	}
	if end < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}
