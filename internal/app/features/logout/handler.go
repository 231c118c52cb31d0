// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		AuditLog: audit,
		Log:      logger,
	}
}

// ServeLogout handles POST /logout.
// Clears the session cookie; the audit record keeps the user id that
// was signed out.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.SignOut(r.Context(), r, u.ID)
	}

	if err := auth.SignOut(w, r); err != nil {
		h.Log.Error("logout: clear session", zap.Error(err))
	}

	respond.Success(w)
}
