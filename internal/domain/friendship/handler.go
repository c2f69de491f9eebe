package friendship

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
	"github.com/birdwatch/birdwatch-api/internal/pkg/validator"
)

// Handler handles friendship HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates friendship handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid friendship ID")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /friends
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := access.ActorFrom(r.Context())
	overview, err := h.service.List(r.Context(), actor)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, OverviewResponseFrom(overview, actor.ID))
}

// SendRequest handles POST /friends/requests
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req SendRequestRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	f, err := h.service.SendRequest(r.Context(), access.ActorFrom(r.Context()), req.RecipientID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, ResponseFrom(f))
}

// Respond handles POST /friends/requests/{id}/respond
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RespondRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	f, err := h.service.Respond(r.Context(), access.ActorFrom(r.Context()), id, req.Decision)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, ResponseFrom(f))
}

// Remove handles DELETE /friends/{id}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), access.ActorFrom(r.Context()), id); err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.NoContent(w)
}
