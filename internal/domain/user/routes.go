package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns user router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public
	r.Get("/{id}", h.GetProfile)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.Me)
		r.Put("/me/location", h.UpdateLocation)
		r.Patch("/{id}", h.UpdateProfile)
		r.Post("/{id}/avatar", h.UploadAvatar)
	})

	return r
}
