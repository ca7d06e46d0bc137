package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 200
)

// PaginationParams holds parsed pagination query parameters.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// ParsePagination extracts pagination parameters from the request.
// Defaults: page=1, pageSize=20. pageSize is clamped to 200 to bound
// response size; out-of-range values fall back rather than erroring.
func ParsePagination(r *http.Request) PaginationParams {
	p := PaginationParams{
		Page:     defaultPage,
		PageSize: defaultPageSize,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}

	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = n
			if p.PageSize > maxPageSize {
				p.PageSize = maxPageSize
			}
		}
	}

	return p
}

// Offset returns the database offset for the current page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
