package pagination

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage is the page size when per_page is not provided.
	DefaultPerPage = 10
	// MaxPerPage caps how many rows any list query can request.
	MaxPerPage = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Meta is returned alongside every paginated list.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Normalize enforces page >= 1 and the configured default and maximum page sizes.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	p.PerPage = NormalizePerPage(p.PerPage)
	return p
}

// Offset is the number of rows skipped before the current page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

func NormalizePerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// NewMeta builds response metadata for total rows.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(n.PerPage)))
	}
	return Meta{Page: n.Page, PerPage: n.PerPage, Total: total, TotalPages: pages}
}

// FromRequest reads page and per_page query parameters, ignoring malformed values.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	return Params{
		Page:    atoi(q.Get("page")),
		PerPage: atoi(q.Get("per_page")),
	}.Normalize()
}

func atoi(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
