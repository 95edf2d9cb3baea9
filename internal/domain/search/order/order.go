package order

// Field is the attribute results are ordered by.
type Field string

// Sort field constants.
const (
	// Relevance orders by weighted text score. Without a query it falls back to recency.
	Relevance Field = "relevance"
	CreatedAt Field = "created_at"
	ViewCount Field = "view_count"
	Title     Field = "title"
)

// IsValid checks if the field is one of the supported values.
func (f Field) IsValid() bool {
	return f == Relevance || f == CreatedAt || f == ViewCount || f == Title
}

// DefaultDirection is the natural order for the field: alphabetical for title, largest first otherwise.
func (f Field) DefaultDirection() Direction {
	if f == Title {
		return Asc
	}
	return Desc
}

// Direction is ascending or descending.
type Direction string

// Sort direction constants.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid checks if the direction is one of the supported values.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}
