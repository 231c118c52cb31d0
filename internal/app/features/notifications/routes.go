// internal/app/features/notifications/routes.go
package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/roles"
)

// Routes serves the signed-in user's own notification feed. The feed
// queries degrade to an empty page and a zero count for anonymous
// callers; the lifecycle mutations require a session.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/unread-count", h.ServeUnreadCount)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		r.Post("/{id}/read", h.ServeMarkRead)
		r.Post("/read-all", h.ServeMarkAllRead)
		r.Delete("/{id}", h.ServeDelete)
		r.Delete("/", h.ServeClearAll)
	})

	return r
}

// TargetingRoutes serves the staff-facing send endpoints. The router gate
// admits managers and above; the engine applies the stricter per-operation
// rules (standalone groups need admin, platform broadcast needs superadmin).
func TargetingRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(roles.Manager, roles.Admin, roles.SuperAdmin))

	r.Post("/user", h.ServeNotifyUser)
	r.Post("/users", h.ServeNotifyUsers)
	r.Post("/group/{id}", h.ServeNotifyGroup)
	r.Post("/groups", h.ServeNotifyGroups)
	r.Post("/groups/type/{type}", h.ServeNotifyGroupsByType)
	r.Post("/groups/standalone", h.ServeNotifyStandaloneGroups)
	r.Post("/groups/criteria", h.ServeNotifyGroupsByCriteria)
	r.Post("/org/{id}", h.ServeNotifyOrganization)
	r.Post("/org/{id}/role/{role}", h.ServeNotifyOrgRole)
	r.Post("/channel/{id}", h.ServeNotifyChannel)
	r.Post("/system-role", h.ServeNotifySystemRole)
	r.Post("/all", h.ServeNotifyAllUsers)

	return r
}
