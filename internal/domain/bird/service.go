package bird

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

const maxQueryLength = 100

// Service handles bird catalog reads
type Service struct {
	repo Repository
}

// NewService creates bird service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bird, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load bird", err)
	}
	if b == nil {
		return nil, ErrBirdNotFound
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, page pagination.Params) ([]*Bird, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}
	birds, total, err := s.repo.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("list birds", err)
	}
	return birds, total, nil
}

// Search matches query against bird names and species, case-insensitively.
func (s *Service) Search(ctx context.Context, query string, page pagination.Params) ([]*Bird, int, error) {
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < 1 || n > maxQueryLength {
		return nil, 0, ErrQueryLength
	}
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	birds, total, err := s.repo.Search(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, apperr.Internal("search birds", err)
	}
	return birds, total, nil
}
