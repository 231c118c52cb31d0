// internal/app/features/preferences/routes.go
package preferences

import (
	"github.com/go-chi/chi/v5"
	"github.com/lgsf/teamhub/internal/app/system/auth"
)

// Routes returns the router for the signed-in user's preferences. The
// read degrades to a null bundle for anonymous callers; the update
// requires a session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeGet)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)
		r.Put("/", h.ServePut)
	})
	return r
}
