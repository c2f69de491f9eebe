package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/user"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
)

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates admin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Analytics handles GET /admin/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context(), access.ActorFrom(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, a)
}

// InactiveUsers handles GET /admin/users/inactive
func (h *Handler) InactiveUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	users, total, err := h.service.InactiveUsers(r.Context(), access.ActorFrom(r.Context()), page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	items := make([]*user.UserResponse, len(users))
	for i, u := range users {
		items[i] = user.UserResponseFrom(u)
	}
	response.WithMeta(w, items, response.NewMeta(total, page.Page, page.Limit))
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.DeleteUser(r.Context(), access.ActorFrom(r.Context()), id); err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.NoContent(w)
}
