// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
	"github.com/lgsf/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("handler timeouts configured from environment", zap.Int("overrides", n))
	}

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, logger); err != nil {
			return err
		}
	}

	return nil
}

// ensureSuperAdmin guarantees that exactly the configured account holds
// the superadmin role. An existing user is promoted; a missing one is
// created as a placeholder that OAuth sign-in later claims by email.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	store := userstore.New(deps.MongoDatabase)
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == roles.SuperAdmin {
			return nil
		}
		if err := store.SetRole(ctx, existing.ID, roles.SuperAdmin); err != nil {
			return err
		}
		logger.Info("promoted existing user to superadmin",
			zap.String("email", email),
			zap.String("previous_role", existing.Role))
		return nil

	case errors.Is(err, mongo.ErrNoDocuments):
		u := models.User{
			// Placeholder subject until OAuth sign-in claims the account
			// by email; keeps the auth_subject unique index satisfied.
			AuthSubject: "pending:" + email,
			Email:       email,
			FullName:    "Super Admin",
			Role:        roles.SuperAdmin,
			Status:      models.StatusActive,
		}
		if _, err := store.Create(ctx, u); err != nil {
			return err
		}
		logger.Info("created superadmin user", zap.String("email", email))
		return nil

	default:
		return err
	}
}
