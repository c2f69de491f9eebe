package moderation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
	"github.com/birdwatch/birdwatch-api/internal/pkg/validator"
)

// Handler handles moderation HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates moderation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

// Flag handles POST /moderation/flags
func (h *Handler) Flag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	f, err := h.service.Flag(r.Context(), access.ActorFrom(r.Context()), req.PostID, req.Reason)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, FlagResponseFrom(f))
}

// Queue handles GET /moderation/flags
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	entries, total, err := h.service.Queue(r.Context(), access.ActorFrom(r.Context()), page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, QueueResponseFrom(entries), response.NewMeta(total, page.Page, page.Limit))
}

// ReviewFlag handles POST /moderation/flags/{id}/review
func (h *Handler) ReviewFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ReviewFlagRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	f, err := h.service.Review(r.Context(), access.ActorFrom(r.Context()), id, req.Decision)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, FlagResponseFrom(f))
}

// Submit handles POST /moderation/requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	mr, err := h.service.Submit(r.Context(), access.ActorFrom(r.Context()), req.Input())
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, RequestResponseFrom(mr))
}

// MyRequest handles GET /moderation/requests/me
func (h *Handler) MyRequest(w http.ResponseWriter, r *http.Request) {
	mr, err := h.service.MyRequest(r.Context(), access.ActorFrom(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, RequestResponseFrom(mr))
}

// ListRequests handles GET /moderation/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	status := RequestStatus(strings.ToUpper(r.URL.Query().Get("status")))

	reqs, total, err := h.service.ListRequests(r.Context(), access.ActorFrom(r.Context()), status, page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, RequestResponsesFrom(reqs), response.NewMeta(total, page.Page, page.Limit))
}

// Decide handles POST /moderation/requests/{id}/decide
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req DecideRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	mr, err := h.service.Decide(r.Context(), access.ActorFrom(r.Context()), id, req.Decision)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, RequestResponseFrom(mr))
}

// Routes returns moderation router. Role checks happen in the service.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/flags", h.Flag)
	r.Get("/flags", h.Queue)
	r.Post("/flags/{id}/review", h.ReviewFlag)

	r.Post("/requests", h.Submit)
	r.Get("/requests", h.ListRequests)
	r.Get("/requests/me", h.MyRequest)
	r.Post("/requests/{id}/decide", h.Decide)

	return r
}
