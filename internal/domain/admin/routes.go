package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns admin router. adminOnly rejects non-admins before the
// service repeats the check.
func (h *Handler) Routes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminOnly)

	r.Get("/analytics", h.Analytics)
	r.Get("/users/inactive", h.InactiveUsers)
	r.Delete("/users/{id}", h.DeleteUser)

	return r
}
