// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/resources"
	userstore "github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/users"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/timeouts"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the database is ready and before the handler is
// built: it loads the message catalogs, parses templates once and makes
// sure the configured superadmin exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	bundle, err := i18n.Load(appCfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("load message catalogs: %w", err)
	}
	for _, loc := range i18n.Supported {
		if missing := bundle.Missing(loc); len(missing) > 0 {
			logger.Warn("locale catalog incomplete; default text used",
				zap.String("locale", loc), zap.Int("missing", len(missing)))
		}
	}
	i18n.SetShared(bundle)

	resources.LoadSharedTemplates()
	eng := viewkit.New(bundle, logger)
	if err := eng.Boot(); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return err
	}
	viewkit.UseEngine(eng)

	sctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	return ensureSuperAdmin(sctx, deps, appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger)
}

// ensureSuperAdmin creates the platform superadmin on first start. An
// existing account with the email is left untouched. Without a password
// the account can only sign in with Google.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	hash := ""
	if password != "" {
		h, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash superadmin password: %w", err)
		}
		hash = h
	}

	created, err := userstore.New(deps.MongoDatabase).EnsureSuperAdmin(ctx, "Superadmin", email, hash)
	if err != nil {
		logger.Error("ensure superadmin failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("ensure superadmin: %w", err)
	}
	if created {
		logger.Info("created superadmin", zap.String("email", email))
	}
	return nil
}
