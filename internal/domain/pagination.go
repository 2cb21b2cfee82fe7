package domain

// PaginationParams selects one page of a purchase listing.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset is the number of rows to skip for the current page. Page numbering
// starts at 1; anything below that maps to the first page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
