package geo

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

const MaxPageSize = 100

var (
	ErrInvalidRadius   = apperr.New(apperr.KindInvalidArgument, "radius must be positive")
	ErrInvalidPage     = apperr.New(apperr.KindInvalidArgument, "page must be at least 1")
	ErrInvalidPageSize = apperr.New(apperr.KindInvalidArgument, "page size must be between 1 and 100")
)

// Candidate is an item with a position that may be returned by Nearby.
type Candidate[T any] struct {
	ID        uuid.UUID
	Coords    Coordinates
	CreatedAt time.Time
	Species   []string
	Item      T
}

// Query describes a radius search.
type Query struct {
	Center   Coordinates
	RadiusKm float64
	Page     int
	PageSize int
	// Species, when non-empty, keeps only candidates sharing at least one
	// species (case-insensitive).
	Species []string
}

// Validate checks the query parameters.
func (q Query) Validate() error {
	if err := q.Center.Validate(); err != nil {
		return err
	}
	if !(q.RadiusKm > 0) {
		return ErrInvalidRadius
	}
	if q.Page < 1 {
		return ErrInvalidPage
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	return nil
}

// Hit is a matched item and its distance from the query center.
type Hit[T any] struct {
	Item       T       `json:"item"`
	DistanceKm float64 `json:"distance_km"`
}

// Page is one page of Nearby results.
type Page[T any] struct {
	Hits     []Hit[T] `json:"hits"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Pages    int      `json:"pages"`

	// Truncated reports that the candidate set was capped before
	// filtering, so Total is a lower bound.
	Truncated bool `json:"truncated"`
}

// Nearby filters candidates by radius and species, orders them newest
// first (ties by id descending) and returns the requested page.
// A page past the end is empty, not an error.
func Nearby[T any](q Query, candidates []Candidate[T]) (Page[T], error) {
	if err := q.Validate(); err != nil {
		return Page[T]{}, err
	}

	wanted := speciesSet(q.Species)

	type match struct {
		c Candidate[T]
		d float64
	}
	matches := make([]match, 0, len(candidates))
	for _, c := range candidates {
		if c.Coords.Validate() != nil {
			continue
		}
		d := DistanceKm(q.Center, c.Coords)
		if d > q.RadiusKm {
			continue
		}
		if len(wanted) > 0 && !intersects(wanted, c.Species) {
			continue
		}
		matches = append(matches, match{c: c, d: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].c, matches[j].c
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})

	total := len(matches)
	out := Page[T]{
		Hits:     []Hit[T]{},
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Pages:    (total + q.PageSize - 1) / q.PageSize,
	}

	if q.Page > out.Pages {
		return out, nil
	}
	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if end > total {
		end = total
	}
	for _, m := range matches[start:end] {
		out.Hits = append(out.Hits, Hit[T]{Item: m.c.Item, DistanceKm: m.d})
	}
	return out, nil
}

func speciesSet(species []string) map[string]struct{} {
	set := make(map[string]struct{}, len(species))
	for _, s := range species {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func intersects(set map[string]struct{}, species []string) bool {
	for _, s := range species {
		if _, ok := set[strings.ToLower(strings.TrimSpace(s))]; ok {
			return true
		}
	}
	return false
}
