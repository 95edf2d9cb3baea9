package eventlog

import (
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

type searchDTO struct {
	ID              string       `json:"id"`
	Query           string       `json:"query,omitempty"`
	QueryType       string       `json:"query_type"`
	Filters         *criteriaDTO `json:"filters,omitempty"`
	ResultCount     int          `json:"result_count"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
	ClickedResultID string       `json:"clicked_result_id,omitempty"`
	ClickedPosition *int         `json:"clicked_position,omitempty"`
	SessionID       string       `json:"session_id,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
}

type clickDTO struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Query      string    `json:"query,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type criteriaDTO struct {
	Tags         []string   `json:"tags,omitempty"`
	MachineModel string     `json:"machine_model,omitempty"`
	ProcessType  string     `json:"process_type,omitempty"`
	SkillLevel   string     `json:"skill_level,omitempty"`
	Status       string     `json:"status,omitempty"`
	Visibility   string     `json:"visibility,omitempty"`
	DurationMin  *int       `json:"duration_min,omitempty"`
	DurationMax  *int       `json:"duration_max,omitempty"`
	CreatedFrom  *time.Time `json:"created_from,omitempty"`
	CreatedTo    *time.Time `json:"created_to,omitempty"`
}

func searchFromDomain(ev analytics.Event) searchDTO {
	dto := searchDTO{
		ID:              ev.ID,
		Query:           ev.Query,
		QueryType:       string(ev.QueryType),
		ResultCount:     ev.ResultCount,
		ExecutionTimeMs: ev.ExecutionTimeMs,
		ClickedResultID: ev.ClickedResultID,
		ClickedPosition: ev.ClickedPosition,
		SessionID:       ev.SessionID,
		Timestamp:       ev.Timestamp.UTC(),
	}
	if ev.Filters.HasPredicates() {
		c := ev.Filters
		f := &criteriaDTO{
			Tags:         c.Tags,
			MachineModel: c.MachineModel,
			ProcessType:  c.ProcessType,
			SkillLevel:   c.SkillLevel,
			Status:       c.Status,
			Visibility:   c.Visibility,
		}
		if c.Duration != nil {
			f.DurationMin, f.DurationMax = c.Duration.Min, c.Duration.Max
		}
		if c.Created != nil {
			f.CreatedFrom, f.CreatedTo = c.Created.Start, c.Created.End
		}
		dto.Filters = f
	}
	return dto
}

func (d searchDTO) toDomain() analytics.Event {
	ev := analytics.Event{
		ID:              d.ID,
		Query:           d.Query,
		QueryType:       analytics.QueryType(d.QueryType),
		ResultCount:     d.ResultCount,
		ExecutionTimeMs: d.ExecutionTimeMs,
		ClickedResultID: d.ClickedResultID,
		ClickedPosition: d.ClickedPosition,
		SessionID:       d.SessionID,
		Timestamp:       d.Timestamp,
	}
	ev.Filters.Query = d.Query
	if f := d.Filters; f != nil {
		ev.Filters.Tags = f.Tags
		ev.Filters.MachineModel = f.MachineModel
		ev.Filters.ProcessType = f.ProcessType
		ev.Filters.SkillLevel = f.SkillLevel
		ev.Filters.Status = f.Status
		ev.Filters.Visibility = f.Visibility
		if f.DurationMin != nil || f.DurationMax != nil {
			ev.Filters.Duration = &filter.DurationRange{Min: f.DurationMin, Max: f.DurationMax}
		}
		if f.CreatedFrom != nil || f.CreatedTo != nil {
			ev.Filters.Created = &filter.DateRange{Start: f.CreatedFrom, End: f.CreatedTo}
		}
	}
	return ev
}

func clickFromDomain(c analytics.Click) clickDTO {
	return clickDTO{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Position:   c.Position,
		Query:      c.Query,
		SessionID:  c.SessionID,
		Timestamp:  c.Timestamp.UTC(),
	}
}

func (d clickDTO) toDomain() analytics.Click {
	return analytics.Click{
		ID:         d.ID,
		DocumentID: d.DocumentID,
		Position:   d.Position,
		Query:      d.Query,
		SessionID:  d.SessionID,
		Timestamp:  d.Timestamp,
	}
}
