package domain

import "math"

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the current page (0-based).
// Formula: (Page - 1) * PageSize, saturating at math.MaxInt instead of overflowing.
func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Window returns the [start, end) slice bounds of the page within total items.
// Both bounds always lie in [0, total].
func (p PaginationParams) Window(total int) (int, int) {
	start := p.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if p.PageSize > 0 && p.PageSize < total-start {
		end = start + p.PageSize
	}
	return start, end
}
