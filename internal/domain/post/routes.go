package post

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns post router. optionalAuth identifies the viewer on
// public reads so their own reactions can be shown.
func (h *Handler) Routes(authMiddleware, optionalAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", h.List)
		r.Get("/nearby", h.Nearby)
		r.Get("/map", h.Map)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/reactions", h.Reactions)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/feed", h.Feed)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/reactions", h.React)
		r.Delete("/{id}/reactions/{kind}", h.Unreact)
	})

	return r
}
