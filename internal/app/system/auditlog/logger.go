// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/lgsf/teamhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in/sign-out events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin action events (role changes, group/org CRUD).
	Admin string
	// Notify controls logging for notification targeting requests.
	Notify string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryNotify:
		setting = l.config.Notify
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// SignInSuccess logs a successful OAuth sign-in.
func (l *Logger) SignInSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, orgID *primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAuth,
		EventType:      audit.EventSignInSuccess,
		UserID:         &userID,
		OrganizationID: orgID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
		Details:        map[string]string{"email": email},
	})
}

// SignInUserCreated logs a first sign-in that provisioned a new user record.
func (l *Logger) SignInUserCreated(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignInUserCreated,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// SignInUserDisabled logs a rejected sign-in from a non-active account.
func (l *Logger) SignInUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, status string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignInUserDisabled,
		UserID:        &userID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "account not active",
		Details: map[string]string{
			"email":  email,
			"status": status,
		},
	})
}

// SignOut logs a user sign-out.
// Accepts the string ID from the session and converts it to an ObjectID.
func (l *Logger) SignOut(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}

	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignOut,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin Events ---

// GroupCreated logs group creation.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name, groupType string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupCreated,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"group_id":   groupID.Hex(),
			"group_name": name,
			"group_type": groupType,
		},
	})
}

// GroupDeactivated logs group deactivation.
func (l *Logger) GroupDeactivated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupDeactivated,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"group_id": groupID.Hex()},
	})
}

// GroupMemberJoined logs a user joining a group.
func (l *Logger) GroupMemberJoined(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID, rejoined bool) {
	details := map[string]string{"group_id": groupID.Hex()}
	if rejoined {
		details["rejoined"] = "true"
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupMemberJoined,
		UserID:    &userID,
		ActorID:   &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// GroupMemberLeft logs a user leaving a group.
func (l *Logger) GroupMemberLeft(ctx context.Context, r *http.Request, userID, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupMemberLeft,
		UserID:    &userID,
		ActorID:   &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"group_id": groupID.Hex()},
	})
}

// PrefsUpdated logs a notification preference update by the user themselves.
func (l *Logger) PrefsUpdated(ctx context.Context, r *http.Request, userID primitive.ObjectID, sections string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventPrefsUpdated,
		UserID:    &userID,
		ActorID:   &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"sections": sections},
	})
}
