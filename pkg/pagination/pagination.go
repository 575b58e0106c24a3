package pagination

import (
	"math"
	"net/http"
	"strconv"
)

// Options controls how query parameters are turned into Params.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// NewParams normalises page and limit: a page below 1 becomes 1, a limit
// below 1 becomes the default and a limit above the maximum is clamped.
// Pages too large for their offset to fit in an int keep their number but
// share the largest representable offset, which lies past any real result.
func NewParams(page, limit int, opts Options) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		limit = opts.MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	skipped := min(page-1, math.MaxInt/limit)
	return Params{Page: page, Limit: limit, Offset: skipped * limit}
}

// FromRequest extracts page and limit from the query string. Values that do
// not parse as integers fall back to the defaults.
func FromRequest(r *http.Request, opts Options) Params {
	q := r.URL.Query()
	return NewParams(atoiOr(q.Get("page"), 1), atoiOr(q.Get("limit"), opts.DefaultLimit), opts)
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// Meta is the pagination block returned alongside a page of results.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewMeta computes the pagination block for a page out of total items.
func NewMeta(total int, params Params) Meta {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = total / params.Limit
		if total%params.Limit > 0 {
			totalPages++
		}
	}

	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
