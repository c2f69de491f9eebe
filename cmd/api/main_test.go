package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/admin"
	"github.com/birdwatch/birdwatch-api/internal/domain/auth"
	"github.com/birdwatch/birdwatch-api/internal/domain/bird"
	"github.com/birdwatch/birdwatch-api/internal/domain/birdicon"
	"github.com/birdwatch/birdwatch-api/internal/domain/friendship"
	"github.com/birdwatch/birdwatch-api/internal/domain/moderation"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/domain/search"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/middleware"
	"github.com/birdwatch/birdwatch-api/internal/pkg/jwt"
)

type staticURLs struct{}

func (staticURLs) URL(key string) string { return "/uploads/" + key }

func newTestAPI(t *testing.T) (http.Handler, *jwt.Service) {
	t.Helper()

	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	h := handlers{
		auth:       auth.NewHandler(nil),
		users:      user.NewHandler(nil),
		friends:    friendship.NewHandler(nil),
		posts:      post.NewHandler(nil, staticURLs{}),
		birds:      bird.NewHandler(nil),
		birdIcons:  birdicon.NewHandler(nil),
		search:     search.NewHandler(nil, staticURLs{}),
		moderation: moderation.NewHandler(nil),
		admin:      admin.NewHandler(nil),
	}
	g := guards{
		auth:      middleware.Auth(jwtService, nil),
		optional:  middleware.OptionalAuth(jwtService, nil),
		adminOnly: middleware.RequireRole(access.RoleAdmin),
		authLimit: middleware.RateLimit(nil, "auth", 20, time.Minute),
	}

	r := chi.NewRouter()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Fatalf("mounting routes panicked: %v", rec)
			}
		}()
		r.Route("/api/v1", func(r chi.Router) {
			mountAPI(r, h, g)
		})
	}()
	return r, jwtService
}

func TestMountAPIPing(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMountAPIProtectedRoutesRequireToken(t *testing.T) {
	api, _ := newTestAPI(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/friends/"},
		{http.MethodPost, "/api/v1/friends/requests"},
		{http.MethodGet, "/api/v1/posts/feed"},
		{http.MethodPost, "/api/v1/posts/"},
		{http.MethodPost, "/api/v1/moderation/flags"},
		{http.MethodGet, "/api/v1/moderation/flags"},
		{http.MethodPost, "/api/v1/moderation/requests"},
		{http.MethodGet, "/api/v1/bird-icons/"},
		{http.MethodGet, "/api/v1/admin/analytics"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPut, "/api/v1/users/me/location"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			api.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestMountAPIAdminRequiresAdminRole(t *testing.T) {
	api, jwtService := newTestAPI(t)

	for _, role := range []access.Role{access.RoleUser, access.RoleModerator} {
		token, err := jwtService.GenerateAccessToken(uuid.New(), string(role))
		if err != nil {
			t.Fatalf("token gen failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+uuid.NewString(), nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		rr := httptest.NewRecorder()
		api.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", role, rr.Code)
		}
	}
}

func TestMountAPIPublicAuthRoutesValidateInput(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestMountAPIUnknownRoute(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/castings", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
