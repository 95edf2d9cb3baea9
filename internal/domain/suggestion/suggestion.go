package suggestion

import (
	"fmt"
	"strings"
	"time"
)

// Type is the vocabulary a suggestion is drawn from.
type Type string

// Suggestion types.
const (
	TypeTag          Type = "tag"
	TypeMachineModel Type = "machine_model"
	TypeProcessType  Type = "process_type"
	TypeAuthor       Type = "author"
	TypeTitle        Type = "title"
	TypeQuery        Type = "query"
)

// Types lists every suggestion type.
var Types = []Type{TypeTag, TypeMachineModel, TypeProcessType, TypeAuthor, TypeTitle, TypeQuery}

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// ParseTypes validates a list of raw type names. Duplicates are dropped.
func ParseTypes(raw []string) ([]Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Type, 0, len(raw))
	seen := make(map[Type]struct{}, len(raw))
	for _, r := range raw {
		t := Type(strings.ToLower(strings.TrimSpace(r)))
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown suggestion type %q", r)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Suggestion is a ranked completion candidate.
type Suggestion struct {
	typ   Type
	value string
	score float64
}

// New creates a suggestion.
func New(typ Type, value string, score float64) Suggestion {
	return Suggestion{typ: typ, value: value, score: score}
}

// Type returns the vocabulary type.
func (s Suggestion) Type() Type { return s.typ }

// Value returns the suggested text.
func (s Suggestion) Value() string { return s.value }

// Score returns the combined ranking score.
func (s Suggestion) Score() float64 { return s.score }

// Entry is one vocabulary term with its usage counters.
// A zero LastUsedAt means the entry was never used.
type Entry struct {
	Type       Type
	Value      string
	UsageCount int64
	LastUsedAt time.Time
}

// Key returns the identity of the entry: type plus case-folded value.
func (e Entry) Key() string {
	return KeyOf(e.Type, e.Value)
}

// KeyOf builds the vocabulary key for a type and value.
func KeyOf(t Type, value string) string {
	return string(t) + ":" + strings.ToLower(strings.TrimSpace(value))
}

// Merge combines two observations of the same entry: usage takes the maximum, last use the latest.
// Both operations are commutative and idempotent, so replaying a counter snapshot is safe.
func (e Entry) Merge(o Entry) Entry {
	if o.UsageCount > e.UsageCount {
		e.UsageCount = o.UsageCount
	}
	if o.LastUsedAt.After(e.LastUsedAt) {
		e.LastUsedAt = o.LastUsedAt
	}
	return e
}
