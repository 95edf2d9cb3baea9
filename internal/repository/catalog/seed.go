// Package catalog loads lesson documents and hosts the catalog adapters
// (memory, bleve, redis) behind the search Catalog contract.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/mediasearch/internal/domain/document"
)

// Lesson is the YAML form of a catalog document.
type Lesson struct {
	ID              string    `yaml:"id"`
	Title           string    `yaml:"title"`
	Description     string    `yaml:"description"`
	Author          string    `yaml:"author"`
	Tags            []string  `yaml:"tags"`
	MachineModel    string    `yaml:"machine_model"`
	ProcessType     string    `yaml:"process_type"`
	ToolingType     string    `yaml:"tooling_type"`
	SkillLevel      string    `yaml:"skill_level"`
	Status          string    `yaml:"status"`
	Visibility      string    `yaml:"visibility"`
	DurationSeconds int       `yaml:"duration_seconds"`
	ViewCount       int64     `yaml:"view_count"`
	BookmarkCount   int64     `yaml:"bookmark_count"`
	CreatedAt       time.Time `yaml:"created_at"`
}

type seedFile struct {
	Lessons []Lesson `yaml:"lessons"`
}

// LoadSeed reads lessons from a YAML file.
func LoadSeed(path string) ([]document.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates YAML lessons. Duplicate IDs are rejected.
func ParseSeed(data []byte) ([]document.Document, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	docs := make([]document.Document, 0, len(f.Lessons))
	seen := make(map[string]struct{}, len(f.Lessons))
	for i, l := range f.Lessons {
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("lesson %d: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = struct{}{}

		doc, err := l.Document()
		if err != nil {
			return nil, fmt.Errorf("lesson %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Document validates the lesson and converts it to a domain document.
func (l Lesson) Document() (document.Document, error) {
	return document.New(l.ID, document.Attributes{
		Title:           l.Title,
		Description:     l.Description,
		Author:          l.Author,
		Tags:            l.Tags,
		MachineModel:    l.MachineModel,
		ProcessType:     l.ProcessType,
		ToolingType:     l.ToolingType,
		SkillLevel:      l.SkillLevel,
		Status:          document.Status(l.Status),
		Visibility:      document.Visibility(l.Visibility),
		DurationSeconds: l.DurationSeconds,
		ViewCount:       l.ViewCount,
		BookmarkCount:   l.BookmarkCount,
		CreatedAt:       l.CreatedAt,
	})
}
