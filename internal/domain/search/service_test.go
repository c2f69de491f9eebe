package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/bird"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

type fakeBirds struct{ query string }

func (f *fakeBirds) Search(_ context.Context, query string, _ pagination.Params) ([]*bird.Bird, int, error) {
	f.query = query
	return []*bird.Bird{{ID: uuid.New(), Name: "Robin"}}, 1, nil
}

type fakePosts struct {
	query  string
	viewer *access.Actor
}

func (f *fakePosts) Search(_ context.Context, viewer *access.Actor, query string, _ pagination.Params) ([]*post.Detail, int, error) {
	f.query, f.viewer = query, viewer
	return []*post.Detail{}, 0, nil
}

func TestSearchDispatchesByType(t *testing.T) {
	birds, posts := &fakeBirds{}, &fakePosts{}
	svc := NewService(birds, posts)
	page := pagination.Params{Page: 1, Limit: 20}
	ctx := context.Background()

	res, err := svc.Search(ctx, nil, TypeBirds, "  robin ", page)
	if err != nil {
		t.Fatalf("bird search returned error: %v", err)
	}
	if res.Total != 1 || len(res.Birds) != 1 || birds.query != "robin" {
		t.Fatalf("unexpected bird result: %+v (query %q)", res, birds.query)
	}

	viewer := &access.Actor{ID: uuid.New(), Role: access.RoleUser}
	if _, err := svc.Search(ctx, viewer, TypePosts, "heron", page); err != nil {
		t.Fatalf("post search returned error: %v", err)
	}
	if posts.query != "heron" || posts.viewer != viewer {
		t.Fatalf("post search not forwarded: %q %+v", posts.query, posts.viewer)
	}
}

func TestSearchValidation(t *testing.T) {
	svc := NewService(&fakeBirds{}, &fakePosts{})
	page := pagination.Params{Page: 1, Limit: 20}
	ctx := context.Background()

	if _, err := svc.Search(ctx, nil, TypeBirds, "   ", page); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := svc.Search(ctx, nil, TypeBirds, strings.Repeat("x", 101), page); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for long query, got %v", err)
	}
	if _, err := svc.Search(ctx, nil, Type("users"), "robin", page); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
