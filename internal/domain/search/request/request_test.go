package request

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New(Params{}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SortBy() != order.Relevance {
		t.Errorf("SortBy() = %q", r.SortBy())
	}
	if r.SortOrder() != order.Desc {
		t.Errorf("SortOrder() = %q", r.SortOrder())
	}
	if r.Page() != 1 || r.Limit() != DefaultLimit || r.Offset() != 0 {
		t.Errorf("page=%d limit=%d offset=%d", r.Page(), r.Limit(), r.Offset())
	}
}

func TestNew_TitleDefaultsAscending(t *testing.T) {
	r, err := New(Params{SortBy: order.Title}, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if r.SortOrder() != order.Asc {
		t.Errorf("SortOrder() = %q, want asc", r.SortOrder())
	}
}

func TestNew_ClampsLimit(t *testing.T) {
	r, err := New(Params{Limit: 500, Page: 3}, Limits{DefaultLimit: 10, MaxLimit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if r.Limit() != 50 {
		t.Errorf("Limit() = %d, want 50", r.Limit())
	}
	if r.Offset() != 100 {
		t.Errorf("Offset() = %d, want 100", r.Offset())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"sort_by", Params{SortBy: "score"}},
		{"sort_order", Params{SortOrder: "up"}},
		{"negative page", Params{Page: -1}},
		{"huge page", Params{Page: MaxPage + 1}},
		{"negative limit", Params{Limit: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p, DefaultLimits())
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}
