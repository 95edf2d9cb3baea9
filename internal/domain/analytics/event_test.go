package analytics

import (
	"testing"

	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		name string
		c    filter.Criteria
		want QueryType
	}{
		{"text", filter.Criteria{Query: "lathe"}, QueryTypeText},
		{"text with filters", filter.Criteria{Query: "lathe", Tags: []string{"safety"}}, QueryTypeText},
		{"filter", filter.Criteria{MachineModel: "mill"}, QueryTypeFilter},
		{"whitespace query is browse", filter.Criteria{Query: "   "}, QueryTypeBrowse},
		{"browse", filter.Criteria{}, QueryTypeBrowse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyQuery(tt.c); got != tt.want {
				t.Errorf("ClassifyQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  CNC   Mill\tSetup "); got != "cnc mill setup" {
		t.Errorf("NormalizeQuery() = %q", got)
	}
	if got := (Click{Query: "Lathe"}).NormalizedQuery(); got != "lathe" {
		t.Errorf("Click.NormalizedQuery() = %q", got)
	}
}
