// internal/app/features/groups/routes.go
package groups

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lgsf/teamhub/internal/app/system/auth"
)

// Routes mounts the group directory. Queries degrade to empty results
// for anonymous callers; mutations require a session.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	r.Get("/{id}/members", h.ServeMembers)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		r.Post("/", h.ServeCreate)
		r.Delete("/{id}", h.ServeDeactivate)
		r.Put("/{id}/notification-defaults", h.ServeSetNotificationDefaults)
		r.Put("/{id}/notifications", h.ServeSetMemberNotifications)
		r.Post("/{id}/join", h.ServeJoin)
		r.Post("/{id}/leave", h.ServeLeave)
	})

	return r
}
