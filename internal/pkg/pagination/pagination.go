package pagination

import (
	"math"
	"net/url"
	"strconv"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps Offset from overflowing for any valid limit.
	MaxPage = math.MaxInt32
)

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Parse reads page and limit from the query string. Absent values take
// defaults; malformed or out-of-range values are InvalidArgument.
func Parse(q url.Values, defaultLimit int) (Params, error) {
	p := Params{Page: 1, Limit: defaultLimit}
	fields := map[string]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["page"] = "must be an integer"
		} else {
			p.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["limit"] = "must be an integer"
		} else {
			p.Limit = n
		}
	}
	if len(fields) > 0 {
		return p, apperr.Invalid("invalid pagination", fields)
	}
	return p, p.Validate()
}

// Validate checks page in [1, MaxPage] and limit in [1, MaxLimit].
func (p Params) Validate() error {
	fields := map[string]string{}
	if p.Page < 1 {
		fields["page"] = "must be at least 1"
	} else if p.Page > MaxPage {
		fields["page"] = "is too large"
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		fields["limit"] = "must be between 1 and 100"
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid pagination", fields)
	}
	return nil
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns the page count for total items.
func (p Params) Pages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
