package post

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdwatch/birdwatch-api/internal/domain/access"
	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/errorhandler"
	"github.com/birdwatch/birdwatch-api/internal/pkg/geo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
	"github.com/birdwatch/birdwatch-api/internal/pkg/response"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
	"github.com/birdwatch/birdwatch-api/internal/pkg/validator"
)

const (
	defaultNearbyRadiusKm = 50.0
	mapPageSize           = 100
)

// Handler handles post HTTP requests
type Handler struct {
	service *Service
	urls    photo.URLer
}

// NewHandler creates post handler
func NewHandler(service *Service, urls photo.URLer) *Handler {
	return &Handler{service: service, urls: urls}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid post ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /posts. Accepts multipart/form-data with repeated
// "photos" files, or a JSON body for posts without photos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	var uploads []Upload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxSize := storage.MaxFileSizes[storage.CategoryPostPhoto]
		r.Body = http.MaxBytesReader(w, r.Body, maxSize*photo.MaxPerPost+(1<<20))
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			response.BadRequest(w, "Files too large or invalid form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		fields, ok := formFields(r.MultipartForm.Value, &req)
		if !ok {
			response.ValidationError(w, fields)
			return
		}

		for _, fh := range r.MultipartForm.File["photos"] {
			f, err := fh.Open()
			if err != nil {
				response.BadRequest(w, "Invalid photo upload")
				return
			}
			defer f.Close()
			uploads = append(uploads, Upload{Filename: fh.Filename, Body: f})
		}
	} else if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	detail, err := h.service.Create(r.Context(), access.ActorFrom(r.Context()), CreateInput{
		Species:     req.Species,
		Description: req.Description,
		Location:    req.Location(),
		Photos:      uploads,
	})
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, ResponseFrom(detail, h.urls))
}

// formFields copies multipart values into req. Species may be repeated or
// comma-separated.
func formFields(values map[string][]string, req *CreatePostRequest) (map[string]string, bool) {
	errs := map[string]string{}
	for _, v := range values["species"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Species = append(req.Species, s)
			}
		}
	}
	if v := values["description"]; len(v) > 0 {
		req.Description = v[0]
	}
	for name, dst := range map[string]**float64{"latitude": &req.Latitude, "longitude": &req.Longitude} {
		v := values[name]
		if len(v) == 0 || v[0] == "" {
			continue
		}
		f, err := strconv.ParseFloat(v[0], 64)
		if err != nil {
			errs[name] = "must be a number"
			continue
		}
		*dst = &f
	}
	return errs, len(errs) == 0
}

// Get handles GET /posts/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), access.ActorFrom(r.Context()), id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, ResponseFrom(detail, h.urls))
}

// List handles GET /posts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	var details []*Detail
	var total int
	viewer := access.ActorFrom(r.Context())
	if author := r.URL.Query().Get("author_id"); author != "" {
		authorID, perr := uuid.Parse(author)
		if perr != nil {
			response.BadRequest(w, "Invalid author ID")
			return
		}
		details, total, err = h.service.ListByAuthor(r.Context(), viewer, authorID, page)
	} else {
		details, total, err = h.service.List(r.Context(), viewer, page)
	}
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, ResponsesFrom(details, h.urls), response.NewMeta(total, page.Page, page.Limit))
}

// Feed handles GET /posts/feed
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	details, total, err := h.service.Feed(r.Context(), access.ActorFrom(r.Context()), page)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.WithMeta(w, ResponsesFrom(details, h.urls), response.NewMeta(total, page.Page, page.Limit))
}

// parseGeoQuery reads lat, lon, radius_km, page, limit and species.
func parseGeoQuery(q url.Values, defaultRadius float64, defaultLimit int) (geo.Query, error) {
	query := geo.Query{RadiusKm: defaultRadius, Page: 1, PageSize: defaultLimit}
	errs := map[string]string{}

	parse := func(name string, dst *float64, required bool) {
		v := q.Get(name)
		if v == "" {
			if required {
				errs[name] = "is required"
			}
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs[name] = "must be a number"
			return
		}
		*dst = f
	}
	parse("lat", &query.Center.Latitude, true)
	parse("lon", &query.Center.Longitude, true)
	parse("radius_km", &query.RadiusKm, false)

	page, err := pagination.Parse(q, defaultLimit)
	if err != nil {
		return query, err
	}
	query.Page, query.PageSize = page.Page, page.Limit

	if v := q.Get("species"); v != "" {
		query.Species = strings.Split(v, ",")
	}
	if len(errs) > 0 {
		return query, apperr.Invalid("invalid location query", errs)
	}
	return query, query.Validate()
}

// Nearby handles GET /posts/nearby
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	q, err := parseGeoQuery(r.URL.Query(), defaultNearbyRadiusKm, pagination.DefaultLimit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	page, err := h.service.Nearby(r.Context(), access.ActorFrom(r.Context()), q)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	items := make([]NearbyResponse, 0, len(page.Hits))
	for _, hit := range page.Hits {
		items = append(items, NearbyResponse{Response: ResponseFrom(hit.Item, h.urls), DistanceKm: hit.DistanceKm})
	}
	meta := response.NewMeta(page.Total, page.Page, page.PageSize)
	meta.Truncated = page.Truncated
	response.WithMeta(w, items, meta)
}

// Map handles GET /posts/map
func (h *Handler) Map(w http.ResponseWriter, r *http.Request) {
	q, err := parseGeoQuery(r.URL.Query(), DefaultMapRadiusKm, mapPageSize)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	page, err := h.service.Map(r.Context(), q)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	markers := make([]MarkerResponse, 0, len(page.Hits))
	for _, hit := range page.Hits {
		p := hit.Item
		markers = append(markers, MarkerResponse{
			ID:         p.ID,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Species:    p.Species,
			DistanceKm: hit.DistanceKm,
			CreatedAt:  p.CreatedAt,
		})
	}
	meta := response.NewMeta(page.Total, page.Page, page.PageSize)
	meta.Truncated = page.Truncated
	response.WithMeta(w, markers, meta)
}

// Update handles PATCH /posts/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	detail, err := h.service.Update(r.Context(), access.ActorFrom(r.Context()), id, &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, ResponseFrom(detail, h.urls))
}

// Delete handles DELETE /posts/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), access.ActorFrom(r.Context()), id); err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.NoContent(w)
}

// Reactions handles GET /posts/{id}/reactions
func (h *Handler) Reactions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Reactions(r.Context(), access.ActorFrom(r.Context()), id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, summary)
}

// React handles POST /posts/{id}/reactions
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ReactRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	summary, err := h.service.React(r.Context(), access.ActorFrom(r.Context()), id, req.Kind)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, summary)
}

// Unreact handles DELETE /posts/{id}/reactions/{kind}
func (h *Handler) Unreact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	kind := ReactionKind(strings.ToUpper(chi.URLParam(r, "kind")))

	summary, err := h.service.Unreact(r.Context(), access.ActorFrom(r.Context()), id, kind)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, summary)
}
