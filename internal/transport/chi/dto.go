package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/facet"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/order"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/result"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

const maxBodyBytes = 1 << 20

// FiltersDTO is the wire form of the structured search criteria.
type FiltersDTO struct {
	Tags          []string          `json:"tags,omitempty"`
	MachineModel  string            `json:"machine_model,omitempty"`
	ProcessType   string            `json:"process_type,omitempty"`
	SkillLevel    string            `json:"skill_level,omitempty"`
	Status        string            `json:"status,omitempty"`
	Visibility    string            `json:"visibility,omitempty"`
	DurationRange *DurationRangeDTO `json:"duration_range,omitempty"`
	DateRange     *DateRangeDTO     `json:"date_range,omitempty"`
}

// DurationRangeDTO bounds lesson length in seconds.
type DurationRangeDTO struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// DateRangeDTO bounds creation time (RFC 3339).
type DateRangeDTO struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query              string      `json:"query"`
	Filters            *FiltersDTO `json:"filters,omitempty"`
	SortBy             string      `json:"sort_by,omitempty"`
	SortOrder          string      `json:"sort_order,omitempty"`
	Page               int         `json:"page,omitempty"`
	Limit              int         `json:"limit,omitempty"`
	IncludeFacets      bool        `json:"include_facets,omitempty"`
	IncludeSuggestions bool        `json:"include_suggestions,omitempty"`
	SessionID          string      `json:"session_id,omitempty"`
}

// SearchResultDTO is one ranked hit.
type SearchResultDTO struct {
	ID              string            `json:"id"`
	Score           float64           `json:"score"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Author          string            `json:"author,omitempty"`
	Tags            []string          `json:"tags"`
	MachineModel    string            `json:"machine_model,omitempty"`
	ProcessType     string            `json:"process_type,omitempty"`
	ToolingType     string            `json:"tooling_type,omitempty"`
	SkillLevel      string            `json:"skill_level,omitempty"`
	Status          string            `json:"status"`
	Visibility      string            `json:"visibility"`
	DurationSeconds int               `json:"duration_seconds"`
	ViewCount       int64             `json:"view_count"`
	BookmarkCount   int64             `json:"bookmark_count"`
	CreatedAt       time.Time         `json:"created_at"`
	Highlights      map[string]string `json:"highlights,omitempty"`
}

// FacetDTO is one facet value count.
type FacetDTO struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
	Count     int    `json:"count"`
}

// SuggestionDTO is one ranked completion.
type SuggestionDTO struct {
	Type  string  `json:"type"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// PaginationDTO describes the page window.
type PaginationDTO struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// SearchResponse is the body returned by POST /api/v1/search.
type SearchResponse struct {
	Results         []SearchResultDTO `json:"results"`
	Facets          []FacetDTO        `json:"facets"`
	Suggestions     []SuggestionDTO   `json:"suggestions,omitempty"`
	Pagination      PaginationDTO     `json:"pagination"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Query           string            `json:"query"`
	Filters         FiltersDTO        `json:"filters"`
}

// SuggestRequest is the body of POST /api/v1/suggest.
type SuggestRequest struct {
	Query string   `json:"query"`
	Types []string `json:"types,omitempty"`
	Limit int      `json:"limit,omitempty"`
}

// SuggestResponse is the body returned by POST /api/v1/suggest.
type SuggestResponse struct {
	Suggestions     []SuggestionDTO `json:"suggestions"`
	Query           string          `json:"query"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

// SearchEventRequest is the body of POST /api/v1/analytics/search.
type SearchEventRequest struct {
	Query                 string      `json:"query"`
	QueryType             string      `json:"query_type,omitempty"`
	Filters               *FiltersDTO `json:"filters,omitempty"`
	ResultCount           int         `json:"result_count"`
	ExecutionTimeMs       int64       `json:"execution_time_ms"`
	ClickedResultID       string      `json:"clicked_result_id,omitempty"`
	ClickedResultPosition *int        `json:"clicked_result_position,omitempty"`
	SessionID             string      `json:"session_id,omitempty"`
}

// ClickEventRequest is the body of POST /api/v1/analytics/click.
type ClickEventRequest struct {
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Query      string `json:"query,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// decodeJSON reads a single JSON object, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.InvalidQuery("invalid request body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.InvalidQuery("invalid request body: unexpected data after JSON object")
	}
	return nil
}

func criteriaFromDTO(query string, f *FiltersDTO) filter.Criteria {
	c := filter.Criteria{Query: query}
	if f == nil {
		return c
	}
	c.Tags = f.Tags
	c.MachineModel = f.MachineModel
	c.ProcessType = f.ProcessType
	c.SkillLevel = f.SkillLevel
	c.Status = f.Status
	c.Visibility = f.Visibility
	if d := f.DurationRange; d != nil {
		c.Duration = &filter.DurationRange{Min: d.Min, Max: d.Max}
	}
	if d := f.DateRange; d != nil {
		c.Created = &filter.DateRange{Start: d.Start, End: d.End}
	}
	return c
}

func filtersToDTO(c filter.Criteria) FiltersDTO {
	f := FiltersDTO{
		Tags:         c.Tags,
		MachineModel: c.MachineModel,
		ProcessType:  c.ProcessType,
		SkillLevel:   c.SkillLevel,
		Status:       c.Status,
		Visibility:   c.Visibility,
	}
	if d := c.Duration; d != nil {
		f.DurationRange = &DurationRangeDTO{Min: d.Min, Max: d.Max}
	}
	if d := c.Created; d != nil {
		f.DateRange = &DateRangeDTO{Start: d.Start, End: d.End}
	}
	return f
}

func (req SearchRequest) params() request.Params {
	return request.Params{
		Criteria:           criteriaFromDTO(req.Query, req.Filters),
		SortBy:             order.Field(req.SortBy),
		SortOrder:          order.Direction(req.SortOrder),
		Page:               req.Page,
		Limit:              req.Limit,
		IncludeFacets:      req.IncludeFacets,
		IncludeSuggestions: req.IncludeSuggestions,
		SessionID:          req.SessionID,
	}
}

func resultsToDTO(rs []result.Result) []SearchResultDTO {
	out := make([]SearchResultDTO, len(rs))
	for i, r := range rs {
		d := r.Document()
		out[i] = SearchResultDTO{
			ID:              r.ID(),
			Score:           r.Score(),
			Title:           d.Title(),
			Description:     d.Description(),
			Author:          d.Author(),
			Tags:            d.Tags(),
			MachineModel:    d.MachineModel(),
			ProcessType:     d.ProcessType(),
			ToolingType:     d.ToolingType(),
			SkillLevel:      d.SkillLevel(),
			Status:          string(d.Status()),
			Visibility:      string(d.Visibility()),
			DurationSeconds: d.DurationSeconds(),
			ViewCount:       d.ViewCount(),
			BookmarkCount:   d.BookmarkCount(),
			CreatedAt:       d.CreatedAt(),
			Highlights:      r.Highlights(),
		}
	}
	return out
}

func facetsToDTO(fs []facet.Facet) []FacetDTO {
	out := make([]FacetDTO, len(fs))
	for i, f := range fs {
		out[i] = FacetDTO{Dimension: string(f.Dimension()), Value: f.Value(), Count: f.Count()}
	}
	return out
}

func suggestionsToDTO(ss []suggestion.Suggestion) []SuggestionDTO {
	out := make([]SuggestionDTO, len(ss))
	for i, s := range ss {
		out[i] = SuggestionDTO{Type: string(s.Type()), Value: s.Value(), Score: s.Score()}
	}
	return out
}

func paginationToDTO(p pagination.Page) PaginationDTO {
	return PaginationDTO{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

func searchResponseToDTO(resp searchuc.Response) SearchResponse {
	out := SearchResponse{
		Results:         resultsToDTO(resp.Results),
		Facets:          facetsToDTO(resp.Facets),
		Pagination:      paginationToDTO(resp.Pagination),
		ExecutionTimeMs: resp.ExecutionTime.Milliseconds(),
		Query:           resp.Query,
		Filters:         filtersToDTO(resp.Criteria),
	}
	if len(resp.Suggestions) > 0 {
		out.Suggestions = suggestionsToDTO(resp.Suggestions)
	}
	return out
}

func (req SearchEventRequest) event(maxQueryLen int) (analytics.Event, error) {
	if err := checkQueryLength(req.Query, maxQueryLen); err != nil {
		return analytics.Event{}, err
	}
	c := criteriaFromDTO(req.Query, req.Filters)
	qt := analytics.QueryType(req.QueryType)
	switch qt {
	case "":
		qt = analytics.ClassifyQuery(c)
	case analytics.QueryTypeText, analytics.QueryTypeFilter, analytics.QueryTypeBrowse:
	default:
		return analytics.Event{}, domain.InvalidQuery("invalid query_type %q", req.QueryType)
	}
	if req.ResultCount < 0 || req.ExecutionTimeMs < 0 {
		return analytics.Event{}, domain.InvalidQuery("result_count and execution_time_ms must not be negative")
	}
	if p := req.ClickedResultPosition; p != nil && *p < 0 {
		return analytics.Event{}, domain.InvalidQuery("clicked_result_position must not be negative")
	}
	return analytics.Event{
		Query:           req.Query,
		QueryType:       qt,
		Filters:         c,
		ResultCount:     req.ResultCount,
		ExecutionTimeMs: req.ExecutionTimeMs,
		ClickedResultID: req.ClickedResultID,
		ClickedPosition: req.ClickedResultPosition,
		SessionID:       req.SessionID,
	}, nil
}

func (req ClickEventRequest) click(maxQueryLen int) (analytics.Click, error) {
	if req.DocumentID == "" {
		return analytics.Click{}, domain.InvalidQuery("document_id is required")
	}
	if err := checkQueryLength(req.Query, maxQueryLen); err != nil {
		return analytics.Click{}, err
	}
	if req.Position < 0 {
		return analytics.Click{}, domain.InvalidQuery("position must not be negative")
	}
	return analytics.Click{
		DocumentID: req.DocumentID,
		Position:   req.Position,
		Query:      req.Query,
		SessionID:  req.SessionID,
	}, nil
}

// clickFromEvent derives the click carried by an ingested search event, if any.
func clickFromEvent(ev analytics.Event) (analytics.Click, bool) {
	if ev.ClickedResultID == "" {
		return analytics.Click{}, false
	}
	pos := 0
	if ev.ClickedPosition != nil {
		pos = *ev.ClickedPosition
	}
	return analytics.Click{
		DocumentID: ev.ClickedResultID,
		Position:   pos,
		Query:      ev.Query,
		SessionID:  ev.SessionID,
	}, true
}

// checkQueryLength applies the search query bound to analytics payloads.
func checkQueryLength(q string, maxLen int) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(q)); n > maxLen {
		return domain.InvalidQuery("query too long (max %d chars)", maxLen)
	}
	return nil
}
