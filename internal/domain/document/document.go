package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Status is the editorial state of a lesson.
type Status string

// Status values.
const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusArchived  Status = "archived"
)

// IsValid checks if the status is one of the supported values.
func (s Status) IsValid() bool {
	return s == StatusPublished || s == StatusDraft || s == StatusArchived
}

// Visibility is the audience a lesson is shared with.
type Visibility string

// Visibility values.
const (
	VisibilityPublic       Visibility = "public"
	VisibilityOrganization Visibility = "organization"
	VisibilityPrivate      Visibility = "private"
)

// IsValid checks if the visibility is one of the supported values.
func (v Visibility) IsValid() bool {
	return v == VisibilityPublic || v == VisibilityOrganization || v == VisibilityPrivate
}

// Attributes are the mutable-at-source fields of a lesson, used to build a Document.
type Attributes struct {
	Title           string
	Description     string
	Author          string
	Tags            []string
	MachineModel    string
	ProcessType     string
	ToolingType     string
	SkillLevel      string
	Status          Status
	Visibility      Visibility
	DurationSeconds int
	ViewCount       int64
	BookmarkCount   int64
	CreatedAt       time.Time
}

// Document is an indexed lesson as seen by one query (immutable value object).
type Document struct {
	id    string
	attrs Attributes
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Title is required.
// Status defaults to published, visibility to public.
func New(id string, attrs Attributes) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	attrs.Title = strings.TrimSpace(attrs.Title)
	if attrs.Title == "" {
		return Document{}, fmt.Errorf("document %s: title is required", id)
	}
	if attrs.Status == "" {
		attrs.Status = StatusPublished
	}
	if !attrs.Status.IsValid() {
		return Document{}, fmt.Errorf("document %s: invalid status %q", id, attrs.Status)
	}
	if attrs.Visibility == "" {
		attrs.Visibility = VisibilityPublic
	}
	if !attrs.Visibility.IsValid() {
		return Document{}, fmt.Errorf("document %s: invalid visibility %q", id, attrs.Visibility)
	}
	if attrs.DurationSeconds < 0 || attrs.ViewCount < 0 || attrs.BookmarkCount < 0 {
		return Document{}, fmt.Errorf("document %s: duration and counters must not be negative", id)
	}

	attrs.Description = strings.TrimSpace(attrs.Description)
	attrs.Author = strings.TrimSpace(attrs.Author)
	attrs.MachineModel = strings.TrimSpace(attrs.MachineModel)
	attrs.ProcessType = strings.TrimSpace(attrs.ProcessType)
	attrs.ToolingType = strings.TrimSpace(attrs.ToolingType)
	attrs.SkillLevel = strings.TrimSpace(attrs.SkillLevel)
	attrs.Tags = uniqueTags(attrs.Tags)
	attrs.CreatedAt = attrs.CreatedAt.UTC()

	return Document{id: id, attrs: attrs}, nil
}

// MustNew calls New and panics on error (fixtures only).
func MustNew(id string, attrs Attributes) Document {
	d, err := New(id, attrs)
	if err != nil {
		panic(err)
	}
	return d
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Title returns the lesson title.
func (d Document) Title() string { return d.attrs.Title }

// Description returns the lesson description (may be empty).
func (d Document) Description() string { return d.attrs.Description }

// Author returns the lesson author (may be empty).
func (d Document) Author() string { return d.attrs.Author }

// Tags returns a copy of the tag set.
func (d Document) Tags() []string {
	out := make([]string, len(d.attrs.Tags))
	copy(out, d.attrs.Tags)
	return out
}

// HasTag reports whether the document carries the tag (case-insensitive).
func (d Document) HasTag(tag string) bool {
	for _, t := range d.attrs.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MachineModel returns the machine model attribute.
func (d Document) MachineModel() string { return d.attrs.MachineModel }

// ProcessType returns the process type attribute.
func (d Document) ProcessType() string { return d.attrs.ProcessType }

// ToolingType returns the tooling type attribute.
func (d Document) ToolingType() string { return d.attrs.ToolingType }

// SkillLevel returns the skill level attribute.
func (d Document) SkillLevel() string { return d.attrs.SkillLevel }

// Status returns the editorial status.
func (d Document) Status() Status { return d.attrs.Status }

// Visibility returns the visibility scope.
func (d Document) Visibility() Visibility { return d.attrs.Visibility }

// DurationSeconds returns the lesson length.
func (d Document) DurationSeconds() int { return d.attrs.DurationSeconds }

// ViewCount returns the number of views.
func (d Document) ViewCount() int64 { return d.attrs.ViewCount }

// BookmarkCount returns the number of bookmarks.
func (d Document) BookmarkCount() int64 { return d.attrs.BookmarkCount }

// CreatedAt returns the creation time (UTC).
func (d Document) CreatedAt() time.Time { return d.attrs.CreatedAt }

// Attributes returns a copy of the document attributes.
func (d Document) Attributes() Attributes {
	a := d.attrs
	a.Tags = d.Tags()
	return a
}

// uniqueTags trims tags, drops empties and removes case-insensitive duplicates (first spelling wins).
func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
