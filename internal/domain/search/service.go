package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/bird"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

const maxQueryLength = 100

// Type selects what a search looks through.
type Type string

const (
	TypeBirds Type = "birds"
	TypePosts Type = "posts"
)

var (
	ErrInvalidType  = apperr.Invalid("invalid search type", map[string]string{"type": "must be birds or posts"})
	ErrInvalidQuery = apperr.Invalid("invalid search query", map[string]string{"query": "must be 1 to 100 characters"})
)

// BirdSearcher searches the bird catalog.
type BirdSearcher interface {
	Search(ctx context.Context, query string, page pagination.Params) ([]*bird.Bird, int, error)
}

// PostSearcher searches sightings.
type PostSearcher interface {
	Search(ctx context.Context, viewer *access.Actor, query string, page pagination.Params) ([]*post.Detail, int, error)
}

// Result holds one page of either birds or posts.
type Result struct {
	Type  Type
	Birds []*bird.Bird
	Posts []*post.Detail
	Total int
}

// Service dispatches searches by type
type Service struct {
	birds BirdSearcher
	posts PostSearcher
}

// NewService creates search service
func NewService(birds BirdSearcher, posts PostSearcher) *Service {
	return &Service{birds: birds, posts: posts}
}

// Search runs query against the catalog selected by typ. Matching is
// case-insensitive substring matching.
func (s *Service) Search(ctx context.Context, viewer *access.Actor, typ Type, query string, page pagination.Params) (*Result, error) {
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < 1 || n > maxQueryLength {
		return nil, ErrInvalidQuery
	}

	res := &Result{Type: typ}
	var err error
	switch typ {
	case TypeBirds:
		res.Birds, res.Total, err = s.birds.Search(ctx, query, page)
	case TypePosts:
		res.Posts, res.Total, err = s.posts.Search(ctx, viewer, query, page)
	default:
		return nil, ErrInvalidType
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
