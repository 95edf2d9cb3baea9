package redis

import (
	"github.com/kailas-cloud/mediasearch/internal/db"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// tagSeparator splits multi-value tag fields. Commas are legal inside attribute values.
const tagSeparator = "|"

// buildIndex describes the FT index over lesson hashes. Only filterable fields are indexed;
// display fields are stored in the hash and returned with each hit.
func buildIndex(name, prefix string) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).Prefix(prefix)
	for _, d := range []filter.Dimension{
		filter.Tags,
		filter.MachineModel,
		filter.ProcessType,
		filter.ToolingType,
		filter.SkillLevel,
		filter.Status,
		filter.Visibility,
	} {
		b.TagWithOpts(string(d), tagSeparator, false)
	}
	return b.
		Numeric(filter.FieldDurationSeconds).
		SortableNumeric(filter.FieldCreatedAt).
		SortableNumeric(fieldViewCount).
		Build()
}
