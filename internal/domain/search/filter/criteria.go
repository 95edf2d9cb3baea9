package filter

import (
	"strings"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
)

// Dimension is a facetable, filterable document attribute.
type Dimension string

// Dimensions. Tooling type is facetable but has no filter predicate.
const (
	Tags         Dimension = "tags"
	MachineModel Dimension = "machine_model"
	ProcessType  Dimension = "process_type"
	ToolingType  Dimension = "tooling_type"
	SkillLevel   Dimension = "skill_level"
	Status       Dimension = "status"
	Visibility   Dimension = "visibility"
)

// Numeric field names shared by catalog adapters.
const (
	FieldDurationSeconds = "duration_seconds"
	FieldCreatedAt       = "created_at" // unix milliseconds
)

// FacetDimensions lists dimensions in response order.
var FacetDimensions = []Dimension{Tags, MachineModel, ProcessType, ToolingType, SkillLevel, Status, Visibility}

// IsValid checks if the dimension is one of the supported values.
func (d Dimension) IsValid() bool {
	for _, fd := range FacetDimensions {
		if d == fd {
			return true
		}
	}
	return false
}

// Values returns the document's values on this dimension. Empty values are omitted.
func (d Dimension) Values(doc document.Document) []string {
	var v string
	switch d {
	case Tags:
		return doc.Tags()
	case MachineModel:
		v = doc.MachineModel()
	case ProcessType:
		v = doc.ProcessType()
	case ToolingType:
		v = doc.ToolingType()
	case SkillLevel:
		v = doc.SkillLevel()
	case Status:
		v = string(doc.Status())
	case Visibility:
		v = string(doc.Visibility())
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

// DurationRange bounds lesson length in seconds. Nil bounds are open.
type DurationRange struct {
	Min *int
	Max *int
}

// DateRange bounds creation time. Nil bounds are open; both ends inclusive.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Criteria is the set of user-facing search constraints. Every populated field narrows the result set:
// tags match when a document carries at least one of them, everything else is ANDed.
type Criteria struct {
	Query        string
	Tags         []string
	MachineModel string
	ProcessType  string
	SkillLevel   string
	Status       string
	Visibility   string
	Duration     *DurationRange
	Created      *DateRange
}

// Has reports whether the criteria constrain the dimension.
func (c Criteria) Has(d Dimension) bool {
	switch d {
	case Tags:
		return len(c.Tags) > 0
	case MachineModel:
		return c.MachineModel != ""
	case ProcessType:
		return c.ProcessType != ""
	case SkillLevel:
		return c.SkillLevel != ""
	case Status:
		return c.Status != ""
	case Visibility:
		return c.Visibility != ""
	}
	return false
}

// Without returns a copy of the criteria with the dimension's predicate removed.
func (c Criteria) Without(d Dimension) Criteria {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	switch d {
	case Tags:
		out.Tags = nil
	case MachineModel:
		out.MachineModel = ""
	case ProcessType:
		out.ProcessType = ""
	case SkillLevel:
		out.SkillLevel = ""
	case Status:
		out.Status = ""
	case Visibility:
		out.Visibility = ""
	}
	return out
}

// HasPredicates reports whether any structured filter is set.
func (c Criteria) HasPredicates() bool {
	for _, d := range FacetDimensions {
		if c.Has(d) {
			return true
		}
	}
	return c.Duration != nil || c.Created != nil
}

// Matches reports whether the document satisfies every structured predicate. The free-text query is ignored.
func (c Criteria) Matches(doc document.Document) bool {
	if len(c.Tags) > 0 {
		found := false
		for _, t := range c.Tags {
			if doc.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !equalOrUnset(c.MachineModel, doc.MachineModel()) ||
		!equalOrUnset(c.ProcessType, doc.ProcessType()) ||
		!equalOrUnset(c.SkillLevel, doc.SkillLevel()) ||
		!equalOrUnset(c.Status, string(doc.Status())) ||
		!equalOrUnset(c.Visibility, string(doc.Visibility())) {
		return false
	}
	if r := c.Duration; r != nil {
		if r.Min != nil && doc.DurationSeconds() < *r.Min {
			return false
		}
		if r.Max != nil && doc.DurationSeconds() > *r.Max {
			return false
		}
	}
	if r := c.Created; r != nil {
		if r.Start != nil && doc.CreatedAt().Before(*r.Start) {
			return false
		}
		if r.End != nil && doc.CreatedAt().After(*r.End) {
			return false
		}
	}
	return true
}

func equalOrUnset(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

// Expression compiles the structured predicates into a backend filter expression.
// Match values are lowercased; created_at bounds are unix milliseconds.
func (c Criteria) Expression() (Expression, error) {
	var must []Condition

	if len(c.Tags) > 0 {
		vals := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			vals[i] = strings.ToLower(t)
		}
		cond, err := NewAnyOf(string(Tags), vals...)
		if err != nil {
			return Expression{}, err
		}
		must = append(must, cond)
	}

	for _, kv := range []struct {
		dim Dimension
		val string
	}{
		{MachineModel, c.MachineModel},
		{ProcessType, c.ProcessType},
		{SkillLevel, c.SkillLevel},
		{Status, c.Status},
		{Visibility, c.Visibility},
	} {
		if kv.val == "" {
			continue
		}
		cond, err := NewMatch(string(kv.dim), strings.ToLower(kv.val))
		if err != nil {
			return Expression{}, err
		}
		must = append(must, cond)
	}

	if r := c.Duration; r != nil && (r.Min != nil || r.Max != nil) {
		rng, err := NewRangeFilter(nil, intBound(r.Min), nil, intBound(r.Max))
		if err != nil {
			return Expression{}, err
		}
		cond, err := NewRange(FieldDurationSeconds, rng)
		if err != nil {
			return Expression{}, err
		}
		must = append(must, cond)
	}

	if r := c.Created; r != nil && (r.Start != nil || r.End != nil) {
		rng, err := NewRangeFilter(nil, timeBound(r.Start), nil, timeBound(r.End))
		if err != nil {
			return Expression{}, err
		}
		cond, err := NewRange(FieldCreatedAt, rng)
		if err != nil {
			return Expression{}, err
		}
		must = append(must, cond)
	}

	return NewExpression(must, nil)
}

func intBound(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func timeBound(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	f := float64(t.UnixMilli())
	return &f
}
