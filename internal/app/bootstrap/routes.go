// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auditlogfeature "github.com/lgsf/teamhub/internal/app/features/auditlog"
	authgooglefeature "github.com/lgsf/teamhub/internal/app/features/authgoogle"
	groupsfeature "github.com/lgsf/teamhub/internal/app/features/groups"
	healthfeature "github.com/lgsf/teamhub/internal/app/features/health"
	logoutfeature "github.com/lgsf/teamhub/internal/app/features/logout"
	notificationsfeature "github.com/lgsf/teamhub/internal/app/features/notifications"
	preferencesfeature "github.com/lgsf/teamhub/internal/app/features/preferences"
	"github.com/lgsf/teamhub/internal/app/notify/engine"
	"github.com/lgsf/teamhub/internal/app/notify/target"
	auditstore "github.com/lgsf/teamhub/internal/app/store/audit"
	channelstore "github.com/lgsf/teamhub/internal/app/store/channels"
	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	groupstore "github.com/lgsf/teamhub/internal/app/store/groups"
	membershipstore "github.com/lgsf/teamhub/internal/app/store/memberships"
	notificationstore "github.com/lgsf/teamhub/internal/app/store/notifications"
	oauthstatestore "github.com/lgsf/teamhub/internal/app/store/oauthstate"
	orgstore "github.com/lgsf/teamhub/internal/app/store/organizations"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/workers"
)

// fanoutPool is created in BuildHandler and drained in Shutdown.
var fanoutPool *workers.Pool

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. TeamHub initializes the session
// store, builds the per-collection stores and the notification engine,
// and mounts JSON feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	orgs := orgstore.New(db)
	memberships := membershipstore.New(db)
	groups := groupstore.New(db)
	groupMembers := groupmemberstore.New(db)
	channels := channelstore.New(db)
	notifications := notificationstore.New(db)
	audit := auditstore.New(db)
	oauthStates := oauthstatestore.New(db)

	auditLogger := auditlog.New(audit, logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Notify: appCfg.AuditLogNotify,
	})

	pool, err := workers.NewPool("fanout", appCfg.FanoutPoolSize, logger)
	if err != nil {
		logger.Error("fan-out pool init failed", zap.Error(err))
		return nil, err
	}
	fanoutPool = pool

	resolver := target.NewResolver(users, orgs, memberships, groups, groupMembers, channels)
	eng := engine.New(resolver, notifications, auditLogger, pool, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(auth.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	authHandler := authgooglefeature.NewHandler(authgooglefeature.Config{
		ClientID:     appCfg.GoogleClientID,
		ClientSecret: appCfg.GoogleClientSecret,
		BaseURL:      appCfg.BaseURL,
	}, users, oauthStates, auditLogger, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(authHandler))

	logoutHandler := logoutfeature.NewHandler(auditLogger, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	prefsHandler := preferencesfeature.NewHandler(users, auditLogger, logger)
	r.Mount("/me/preferences", preferencesfeature.Routes(prefsHandler))

	notifyHandler := notificationsfeature.NewHandler(notifications, eng, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notifyHandler))
	r.Mount("/notify", notificationsfeature.TargetingRoutes(notifyHandler))

	groupsHandler := groupsfeature.NewHandler(groups, groupMembers, orgs, auditLogger, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	auditHandler := auditlogfeature.NewHandler(audit, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler))

	return r, nil
}
