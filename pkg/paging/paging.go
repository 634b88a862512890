// Package paging provides the generic page container used by every paged
// query in the admin core. Pages are constructed fresh per query and never
// mutated afterwards.
package paging

import "errors"

// Validation errors for page requests. Callers translate these into their
// own error taxonomy; this package stays dependency-free.
var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("page size must be >= 1")
)

// Request carries 1-indexed paging parameters.
type Request struct {
	Page     int
	PageSize int
}

// Validate rejects non-positive page numbers and page sizes before any
// store access happens.
func (r Request) Validate() error {
	if r.Page < 1 {
		return ErrInvalidPage
	}
	if r.PageSize < 1 {
		return ErrInvalidPageSize
	}
	return nil
}

// Offset converts the 1-indexed request into a row offset.
func (r Request) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PagedList pairs one page of items with total-count metadata so pagination
// UIs can render page controls without a second query.
type PagedList[T any] struct {
	Items      []T
	TotalCount int
	PageSize   int
}

// NewPagedList builds a page view. It does not re-slice items; the store is
// responsible for fetching at most one page.
func NewPagedList[T any](items []T, totalCount, pageSize int) PagedList[T] {
	return PagedList[T]{Items: items, TotalCount: totalCount, PageSize: pageSize}
}

// Slice pages an already materialized slice. In-memory stores use it to get
// the same shape the SQL LIMIT/OFFSET path produces.
func Slice[T any](all []T, req Request) PagedList[T] {
	total := len(all)
	start := req.Offset()
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}
	page := make([]T, end-start)
	copy(page, all[start:end])
	return PagedList[T]{Items: page, TotalCount: total, PageSize: req.PageSize}
}
