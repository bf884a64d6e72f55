package response

import (
	"fmt"

	"github.com/psyjobs/jobspy-api/internal/jobs"
)

// PageError reports a page past the last one.
type PageError struct {
	Page       int
	TotalPages int
}

// Error implements error.
func (e *PageError) Error() string {
	return fmt.Sprintf("Page %d not found", e.Page)
}

// Suggestion names the valid page range.
func (e *PageError) Suggestion() string {
	return fmt.Sprintf("Use a page number between 1 and %d", e.TotalPages)
}

// PageNotFound is the client payload of a PageError.
type PageNotFound struct {
	Error      string `json:"error"`
	TotalPages int    `json:"total_pages"`
	Suggestion string `json:"suggestion"`
}

// Detail returns the client payload.
func (e *PageError) Detail() PageNotFound {
	return PageNotFound{Error: e.Error(), TotalPages: e.TotalPages, Suggestion: e.Suggestion()}
}

// TotalPages returns ceil(count/size), never less than one.
func TotalPages(count, size int) int {
	if size < 1 {
		size = 1
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Window returns rows [(page-1)*size, min(page*size, n)) and the page count.
// A page past the last one is a *PageError; page 1 of an empty table is an
// empty window.
func Window(t *jobs.Table, page, size int) (*jobs.Table, int, error) {
	if size < 1 {
		size = 1
	}
	total := TotalPages(t.Len(), size)
	if page > total {
		return nil, total, &PageError{Page: page, TotalPages: total}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	return t.Slice(start, start+size), total, nil
}
