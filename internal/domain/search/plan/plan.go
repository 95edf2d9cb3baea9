// Package plan compiles raw search criteria into a canonical, deterministic query plan.
package plan

import (
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// Query length limits.
const (
	DefaultMaxQueryLength = 256
	MaxTagLength          = 128
)

// Compiler normalizes criteria into plans. The zero value uses default limits.
type Compiler struct {
	minLen int
	maxLen int
}

// NewCompiler creates a compiler with the given query length bounds (in characters).
func NewCompiler(minLen, maxLen int) Compiler {
	if minLen < 0 {
		minLen = 0
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxQueryLength
	}
	return Compiler{minLen: minLen, maxLen: maxLen}
}

// MaxQueryLength returns the configured upper bound.
func (c Compiler) MaxQueryLength() int {
	if c.maxLen <= 0 {
		return DefaultMaxQueryLength
	}
	return c.maxLen
}

// Compile validates the criteria and returns their canonical plan.
// The minimum length applies to non-empty queries only; an empty query is a filter browse.
// Failures wrap domain.ErrInvalidQuery.
func (c Compiler) Compile(criteria filter.Criteria) (Plan, error) {
	query := strings.Join(strings.Fields(criteria.Query), " ")
	n := utf8.RuneCountInString(query)
	if n > 0 && n < c.minLen {
		return Plan{}, domain.InvalidQuery("query too short (min %d chars)", c.minLen)
	}
	if n > c.MaxQueryLength() {
		return Plan{}, domain.InvalidQuery("query too long (max %d chars)", c.MaxQueryLength())
	}

	canon := filter.Criteria{
		Query:        strings.ToLower(query),
		MachineModel: normalize(criteria.MachineModel),
		ProcessType:  normalize(criteria.ProcessType),
		SkillLevel:   normalize(criteria.SkillLevel),
		Status:       normalize(criteria.Status),
		Visibility:   normalize(criteria.Visibility),
	}

	tags, err := canonicalTags(criteria.Tags)
	if err != nil {
		return Plan{}, err
	}
	canon.Tags = tags

	if canon.Status != "" && !document.Status(canon.Status).IsValid() {
		return Plan{}, domain.InvalidQuery("unknown status %q", criteria.Status)
	}
	if canon.Visibility != "" && !document.Visibility(canon.Visibility).IsValid() {
		return Plan{}, domain.InvalidQuery("unknown visibility %q", criteria.Visibility)
	}

	if r := criteria.Duration; r != nil && (r.Min != nil || r.Max != nil) {
		if (r.Min != nil && *r.Min < 0) || (r.Max != nil && *r.Max < 0) {
			return Plan{}, domain.InvalidQuery("duration bounds must not be negative")
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return Plan{}, domain.InvalidQuery("duration min %d exceeds max %d", *r.Min, *r.Max)
		}
		canon.Duration = &filter.DurationRange{Min: cloneInt(r.Min), Max: cloneInt(r.Max)}
	}

	if r := criteria.Created; r != nil && (r.Start != nil || r.End != nil) {
		if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
			return Plan{}, domain.InvalidQuery("date range start is after end")
		}
		canon.Created = &filter.DateRange{Start: utcTime(r.Start), End: utcTime(r.End)}
	}

	return Plan{
		criteria: canon,
		tokens:   tokenize(canon.Query),
		key:      buildKey(canon),
	}, nil
}

// Plan is the compiled, canonical form of search criteria.
// Equal criteria (modulo whitespace, case and tag order) compile to equal plans.
type Plan struct {
	criteria filter.Criteria
	tokens   []string
	key      string
}

// Criteria returns the canonical criteria.
func (p Plan) Criteria() filter.Criteria { return p.criteria }

// Query returns the normalized query text.
func (p Plan) Query() string { return p.criteria.Query }

// HasQuery reports whether free-text matching applies.
func (p Plan) HasQuery() bool { return len(p.tokens) > 0 }

// Tokens returns the distinct query tokens in first-seen order.
func (p Plan) Tokens() []string { return slices.Clone(p.tokens) }

// Key returns a canonical string identifying the plan.
func (p Plan) Key() string { return p.key }

// Equal reports whether two plans are identical.
func (p Plan) Equal(o Plan) bool { return p.key == o.key }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func canonicalTags(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if len(in) > filter.MaxConditionsPerGroup {
		return nil, domain.InvalidQuery("too many tags (max %d)", filter.MaxConditionsPerGroup)
	}
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = normalize(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, domain.InvalidQuery("tag too long (max %d chars)", MaxTagLength)
		}
		out = append(out, t)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func tokenize(q string) []string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func buildKey(c filter.Criteria) string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strconv.Quote(c.Query))
	b.WriteString(";tags=")
	b.WriteString(strings.Join(c.Tags, ","))
	for _, kv := range [][2]string{
		{"machine_model", c.MachineModel},
		{"process_type", c.ProcessType},
		{"skill_level", c.SkillLevel},
		{"status", c.Status},
		{"visibility", c.Visibility},
	} {
		b.WriteString(";")
		b.WriteString(kv[0])
		b.WriteString("=")
		b.WriteString(kv[1])
	}
	b.WriteString(";duration=")
	if c.Duration != nil {
		b.WriteString(optInt(c.Duration.Min))
		b.WriteString("..")
		b.WriteString(optInt(c.Duration.Max))
	}
	b.WriteString(";created=")
	if c.Created != nil {
		b.WriteString(optTime(c.Created.Start))
		b.WriteString("..")
		b.WriteString(optTime(c.Created.End))
	}
	return b.String()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
