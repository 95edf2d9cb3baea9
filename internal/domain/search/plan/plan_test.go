package plan

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

func intPtr(i int) *int { return &i }

func TestCompile_Normalizes(t *testing.T) {
	p, err := NewCompiler(0, 256).Compile(filter.Criteria{
		Query:        "  CNC   Mill \t setup ",
		Tags:         []string{"Safety", " setup", "safety", ""},
		MachineModel: " Lathe ",
		Status:       "Published",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Query() != "cnc mill setup" {
		t.Errorf("Query() = %q", p.Query())
	}
	if got := p.Tokens(); strings.Join(got, "|") != "cnc|mill|setup" {
		t.Errorf("Tokens() = %v", got)
	}
	c := p.Criteria()
	if strings.Join(c.Tags, ",") != "safety,setup" {
		t.Errorf("Tags = %v", c.Tags)
	}
	if c.MachineModel != "lathe" || c.Status != "published" {
		t.Errorf("categorical not normalized: %+v", c)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	comp := NewCompiler(0, 0)
	a, err := comp.Compile(filter.Criteria{Query: "Mill  Setup", Tags: []string{"b", "A"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := comp.Compile(filter.Criteria{Query: "mill setup", Tags: []string{"a", "B", "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Errorf("plans differ:\n%s\n%s", a.Key(), b.Key())
	}

	c, _ := comp.Compile(filter.Criteria{Query: "mill setup", Tags: []string{"a"}})
	if a.Equal(c) {
		t.Error("different criteria produced equal plans")
	}
}

func TestCompile_EmptyQueryIsBrowse(t *testing.T) {
	p, err := NewCompiler(0, 256).Compile(filter.Criteria{Tags: []string{"safety"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HasQuery() {
		t.Error("expected no query")
	}
	doc := document.MustNew("a", document.Attributes{Title: "x"})
	if p.Match(doc) != nil {
		t.Error("Match without query must be nil")
	}
}

func TestCompile_Rejects(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	tests := []struct {
		name string
		comp Compiler
		c    filter.Criteria
	}{
		{"too long", NewCompiler(0, 5), filter.Criteria{Query: "abcdef"}},
		{"too short", NewCompiler(3, 10), filter.Criteria{Query: " ab "}},
		{"default max", NewCompiler(0, 0), filter.Criteria{Query: strings.Repeat("x", 257)}},
		{"bad status", NewCompiler(0, 0), filter.Criteria{Status: "deleted"}},
		{"bad visibility", NewCompiler(0, 0), filter.Criteria{Visibility: "secret"}},
		{"negative duration", NewCompiler(0, 0), filter.Criteria{Duration: &filter.DurationRange{Min: intPtr(-1)}}},
		{"inverted duration", NewCompiler(0, 0), filter.Criteria{
			Duration: &filter.DurationRange{Min: intPtr(10), Max: intPtr(5)},
		}},
		{"inverted dates", NewCompiler(0, 0), filter.Criteria{Created: &filter.DateRange{Start: &start, End: &end}}},
		{"long tag", NewCompiler(0, 0), filter.Criteria{Tags: []string{strings.Repeat("t", MaxTagLength+1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.comp.Compile(tt.c)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestCompile_MaxLengthCountsCharacters(t *testing.T) {
	if _, err := NewCompiler(0, 4).Compile(filter.Criteria{Query: "äöüß"}); err != nil {
		t.Errorf("4 multibyte chars should fit max 4: %v", err)
	}
}

func TestMatch_FieldHits(t *testing.T) {
	p, err := NewCompiler(0, 0).Compile(filter.Criteria{Query: "CNC mill"})
	if err != nil {
		t.Fatal(err)
	}
	doc := document.MustNew("a", document.Attributes{
		Title:        "CNC Mill Setup",
		Description:  "Zeroing a milling machine",
		Tags:         []string{"CNC"},
		MachineModel: "Haas",
	})
	hits := p.Match(doc)
	if got := hits[FieldTitle]; len(got) != 2 {
		t.Errorf("title hits = %v, want both tokens", got)
	}
	if !hits.Has(FieldDescription) || !hits.Has(FieldTags) {
		t.Errorf("expected description and tag hits: %v", hits)
	}
	if hits.Has(FieldMachineModel) || hits.Has(FieldProcessType) {
		t.Errorf("unexpected hits: %v", hits)
	}
}

func TestCompile_MinLengthAllowsBrowse(t *testing.T) {
	if _, err := NewCompiler(3, 10).Compile(filter.Criteria{MachineModel: "lathe"}); err != nil {
		t.Errorf("empty query must bypass min length: %v", err)
	}
}
