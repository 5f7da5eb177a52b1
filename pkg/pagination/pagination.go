package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the storefront grid size (four rows of three cards).
	DefaultLimit = 12
	// MaxLimit caps client supplied page sizes.
	MaxLimit = 100
)

// Params holds 1-indexed pagination parameters.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns page 1 with the default limit.
func DefaultParams() Params {
	return New(1, DefaultLimit)
}

// New builds normalized Params. Non-positive values fall back to defaults
// and the limit is capped at MaxLimit. The offset saturates at math.MaxInt
// for page numbers too large to address.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: offset,
	}
}

// FromRequest extracts pagination parameters from the page and limit query
// parameters. per_page is accepted as an alias for limit. Limits above
// MaxLimit are capped.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()

	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}

	limit := DefaultLimit
	raw := q.Get("limit")
	if raw == "" {
		raw = q.Get("per_page")
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		limit = v
	}

	return New(page, limit)
}

// Result wraps one page of items with navigation metadata.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result for data already sliced to the page.
func NewResult[T any](data []T, total int, params Params) Result[T] {
	if params.Limit < 1 {
		params = New(params.Page, params.Limit)
	}

	totalPages := total / params.Limit
	if total%params.Limit > 0 {
		totalPages++
	}
	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Paginate slices items to the requested page. A page past the end yields an
// empty slice with accurate metadata.
func Paginate[T any](items []T, params Params) Result[T] {
	params = New(params.Page, params.Limit)
	total := len(items)

	start := params.Offset
	if start < 0 || start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}

	page := make([]T, end-start)
	copy(page, items[start:end])
	return NewResult(page, total, params)
}
