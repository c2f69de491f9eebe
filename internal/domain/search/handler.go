package search

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/bird"
	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/domain/post"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

// Handler handles search HTTP requests
type Handler struct {
	service *Service
	urls    photo.URLer
}

// NewHandler creates search handler
func NewHandler(service *Service, urls photo.URLer) *Handler {
	return &Handler{service: service, urls: urls}
}

// Search handles GET /search?type=birds|posts&query=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pagination.Parse(q, pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	typ := Type(q.Get("type"))
	if typ == "" {
		typ = TypePosts
	}

	res, err := h.service.Search(r.Context(), access.ActorFrom(r.Context()), typ, q.Get("query"), page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	meta := response.NewMeta(res.Total, page.Page, page.Limit)
	if res.Type == TypeBirds {
		response.WithMeta(w, bird.ResponsesFrom(res.Birds), meta)
		return
	}
	response.WithMeta(w, post.ResponsesFrom(res.Posts, h.urls), meta)
}

// Routes returns search router
func (h *Handler) Routes(optionalAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(optionalAuth)
	r.Get("/", h.Search)
	return r
}
