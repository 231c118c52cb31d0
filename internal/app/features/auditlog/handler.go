// internal/app/features/auditlog/handler.go

// Package auditlog serves the admin-facing audit event query endpoint.
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lgsf/teamhub/internal/app/store/audit"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
)

type Handler struct {
	Audit *audit.Store
	Log   *zap.Logger
}

func NewHandler(auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{Audit: auditStore, Log: logger}
}

// ServeQuery handles GET /audit. Query parameters: category, event_type,
// user_id, actor_id, organization_id, start, end (RFC 3339), limit, offset.
func (h *Handler) ServeQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.QueryFilter{
		Category:  q.Get("category"),
		EventType: q.Get("event_type"),
	}

	parseID := func(key string) (*primitive.ObjectID, bool) {
		raw := q.Get(key)
		if raw == "" {
			return nil, true
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid "+key)
			return nil, false
		}
		return &id, true
	}
	var ok bool
	if filter.UserID, ok = parseID("user_id"); !ok {
		return
	}
	if filter.ActorID, ok = parseID("actor_id"); !ok {
		return
	}
	if filter.OrganizationID, ok = parseID("organization_id"); !ok {
		return
	}

	parseTime := func(key string) (*time.Time, bool) {
		raw := q.Get(key)
		if raw == "" {
			return nil, true
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, key+" must be RFC 3339")
			return nil, false
		}
		return &ts, true
	}
	if filter.StartTime, ok = parseTime("start"); !ok {
		return
	}
	if filter.EndTime, ok = parseTime("end"); !ok {
		return
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 500 {
			respond.Error(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  events,
	})
}
