// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	userstore "github.com/dalemusser/researchportal/internal/app/store/users"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// The portal has no background workers; startup applies the configured
// operation timeouts and reports how many accounts exist so an empty
// database is obvious in the logs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})
	logger.Info("operation timeouts configured", zap.Any("timeouts", timeouts.Current()))

	users := userstore.New(deps.MongoDatabase)

	fields := make([]zap.Field, 0, 2)
	for _, role := range []string{models.RoleFaculty, models.RoleStudent} {
		n, err := users.Count(ctx, role)
		if err != nil {
			logger.Error("failed to count accounts", zap.String("role", role), zap.Error(err))
			return err
		}
		fields = append(fields, zap.Int64(role, n))
	}
	logger.Info("accounts on startup", fields...)

	if appCfg.DefaultDeny {
		logger.Info("default-deny enabled: unlisted paths require a session")
	}
	return nil
}
