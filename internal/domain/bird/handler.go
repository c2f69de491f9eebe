package bird

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

// Handler handles bird catalog HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates bird handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /birds
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	birds, total, err := h.service.List(r.Context(), page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, ResponsesFrom(birds), response.NewMeta(total, page.Page, page.Limit))
}

// Get handles GET /birds/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid bird ID")
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, ResponseFrom(b))
}

// Routes returns bird router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}
