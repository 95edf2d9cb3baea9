package redis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// Hash field names.
const (
	fieldTitle         = "title"
	fieldDescription   = "description"
	fieldAuthor        = "author"
	fieldViewCount     = "view_count"
	fieldBookmarkCount = "bookmark_count"
)

// returnFields lists every field read back from FT.SEARCH.
var returnFields = []string{
	fieldTitle, fieldDescription, fieldAuthor,
	string(filter.Tags), string(filter.MachineModel), string(filter.ProcessType),
	string(filter.ToolingType), string(filter.SkillLevel), string(filter.Status), string(filter.Visibility),
	filter.FieldDurationSeconds, fieldViewCount, fieldBookmarkCount, filter.FieldCreatedAt,
}

// toHash flattens a document into hash fields. Empty strings are omitted.
func toHash(d document.Document) map[string]string {
	a := d.Attributes()
	m := map[string]string{
		fieldTitle:                  a.Title,
		string(filter.Status):       string(a.Status),
		string(filter.Visibility):   string(a.Visibility),
		filter.FieldDurationSeconds: strconv.Itoa(a.DurationSeconds),
		fieldViewCount:              strconv.FormatInt(a.ViewCount, 10),
		fieldBookmarkCount:          strconv.FormatInt(a.BookmarkCount, 10),
		filter.FieldCreatedAt:       strconv.FormatInt(a.CreatedAt.UnixMilli(), 10),
	}
	for k, v := range map[string]string{
		fieldDescription:            a.Description,
		fieldAuthor:                 a.Author,
		string(filter.Tags):         strings.Join(a.Tags, tagSeparator),
		string(filter.MachineModel): a.MachineModel,
		string(filter.ProcessType):  a.ProcessType,
		string(filter.ToolingType):  a.ToolingType,
		string(filter.SkillLevel):   a.SkillLevel,
	} {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// fromHash rebuilds a document from the fields returned by FT.SEARCH.
func fromHash(id string, m map[string]string) (document.Document, error) {
	duration, err := atoi(m, filter.FieldDurationSeconds)
	if err != nil {
		return document.Document{}, err
	}
	views, err := atoi(m, fieldViewCount)
	if err != nil {
		return document.Document{}, err
	}
	bookmarks, err := atoi(m, fieldBookmarkCount)
	if err != nil {
		return document.Document{}, err
	}
	createdMs, err := atoi(m, filter.FieldCreatedAt)
	if err != nil {
		return document.Document{}, err
	}

	var tags []string
	if raw := m[string(filter.Tags)]; raw != "" {
		tags = strings.Split(raw, tagSeparator)
	}

	return document.New(id, document.Attributes{
		Title:           m[fieldTitle],
		Description:     m[fieldDescription],
		Author:          m[fieldAuthor],
		Tags:            tags,
		MachineModel:    m[string(filter.MachineModel)],
		ProcessType:     m[string(filter.ProcessType)],
		ToolingType:     m[string(filter.ToolingType)],
		SkillLevel:      m[string(filter.SkillLevel)],
		Status:          document.Status(m[string(filter.Status)]),
		Visibility:      document.Visibility(m[string(filter.Visibility)]),
		DurationSeconds: int(duration),
		ViewCount:       views,
		BookmarkCount:   bookmarks,
		CreatedAt:       time.UnixMilli(createdMs).UTC(),
	})
}

func atoi(m map[string]string, field string) (int64, error) {
	raw, ok := m[field]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return n, nil
}
