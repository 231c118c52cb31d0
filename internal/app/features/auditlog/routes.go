// internal/app/features/auditlog/routes.go
package auditlog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/roles"
)

func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(roles.Admin, roles.SuperAdmin))

	r.Get("/", h.ServeQuery)

	return r
}
