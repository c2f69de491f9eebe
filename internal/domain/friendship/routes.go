package friendship

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns friendship router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/requests", h.SendRequest)
	r.Post("/requests/{id}/respond", h.Respond)
	r.Delete("/{id}", h.Remove)

	return r
}
