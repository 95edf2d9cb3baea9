package pagination

// Page describes one page of a ranked result set.
type Page struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// New computes page metadata. page and limit must be positive.
func New(page, limit, total int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Bounds returns the half-open [start, end) slice range for the page, clamped to total.
func (p Page) Bounds() (int, int) {
	start := (p.Page - 1) * p.Limit
	if start > p.Total {
		start = p.Total
	}
	end := start + p.Limit
	if end > p.Total {
		end = p.Total
	}
	return start, end
}
