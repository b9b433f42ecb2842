// Package pagination implements fixed-size page windows over ordered listings.
package pagination

// Window describes one page of an ordered listing. Page numbers are 1-based;
// a request beyond the last valid page is clamped to the last (possibly
// partial) page rather than rejected.
type Window struct {
	Number     int   `json:"page"`
	Size       int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// New computes the window for the requested page over total items.
// TotalPages is the ceiling of total/size. Requests below page 1 are
// treated as page 1.
func New(total int64, size, requested int) Window {
	if size <= 0 {
		size = 1
	}

	pages := int((total + int64(size) - 1) / int64(size))
	number := requested
	if number < 1 {
		number = 1
	}
	if pages > 0 && number > pages {
		number = pages
	}
	if pages == 0 {
		number = 1
	}

	return Window{
		Number:     number,
		Size:       size,
		TotalItems: total,
		TotalPages: pages,
	}
}

// Offset returns the index of the first item on the page.
func (w Window) Offset() int {
	return (w.Number - 1) * w.Size
}

// Limit returns the maximum number of items on the page.
func (w Window) Limit() int {
	return w.Size
}

// HasNext reports whether a later page exists.
func (w Window) HasNext() bool {
	return w.Number < w.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (w Window) HasPrev() bool {
	return w.Number > 1
}
