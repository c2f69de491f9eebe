package birdicon

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
	"github.com/birdwatch/birdwatch-api/internal/pkg/validator"
)

// Handler handles bird icon HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates bird icon handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Submit handles POST /bird-icons (multipart: bird_species, icon)
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxFileSizes[storage.CategoryBirdIcon]+(1<<20))
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		response.BadRequest(w, "File too large or invalid form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := SubmitRequest{BirdSpecies: r.FormValue("bird_species")}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	file, _, err := r.FormFile("icon")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			errorhandler.Handle(r.Context(), w, ErrMissingFile)
			return
		}
		response.BadRequest(w, "Invalid icon upload")
		return
	}
	defer file.Close()

	sub, err := h.service.Submit(r.Context(), access.ActorFrom(r.Context()), req.BirdSpecies, file)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, ResponseFrom(sub))
}

// List handles GET /bird-icons?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	status := Status(r.URL.Query().Get("status"))
	subs, total, err := h.service.List(r.Context(), access.ActorFrom(r.Context()), status, page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, ResponsesFrom(subs), response.NewMeta(total, page.Page, page.Limit))
}

// Review handles POST /bird-icons/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid submission ID")
		return
	}

	var req ReviewRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	sub, err := h.service.Review(r.Context(), access.ActorFrom(r.Context()), id, req.Decision)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, ResponseFrom(sub))
}

// Routes returns bird icon router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Submit)
	r.Get("/", h.List)
	r.Post("/{id}/review", h.Review)

	return r
}
