// internal/app/system/respond/respond.go

// Package respond writes the JSON envelopes the API uses. Mutating
// endpoints answer {"success": true, ...}; failures answer
// {"success": false, "error": "..."} with a status derived from the
// error's sentinel.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lgsf/teamhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a bare success envelope.
func Success(w http.ResponseWriter) {
	JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Error writes a failure envelope with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"success": false, "error": message})
}

// FromErr maps sentinel errors to HTTP statuses and writes the failure
// envelope. Errors carrying a taxonomy sentinel surface their message
// verbatim, wrapped context included, so the caller sees what was wrong
// ("group is not active", "organization 64ef..: not found"). Unknown
// errors become 500 with a generic message so internals don't leak.
func FromErr(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
