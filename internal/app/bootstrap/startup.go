// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	loginstore "github.com/dalemusser/libraryhub/internal/app/store/logins"
	"github.com/dalemusser/libraryhub/internal/app/system/metrics"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/dalemusser/libraryhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured timeouts, creates the metrics registry and starts the login
// history cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.services == nil {
		return fmt.Errorf("startup: DBDeps were not created by ConnectDB")
	}

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})
	cur := timeouts.Current()
	logger.Info("store timeouts configured",
		zap.Duration("ping", cur.Ping),
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	m := metrics.New()
	if err := m.WatchLibrary(deps.MongoDatabase); err != nil {
		return fmt.Errorf("register library metrics: %w", err)
	}
	deps.services.metrics = m

	cleanup := workers.NewLoginCleanup(loginstore.New(deps.MongoDatabase), logger,
		appCfg.LoginPruneInterval, appCfg.LoginRetention)
	cleanup.Start()
	deps.services.loginCleanup = cleanup

	return nil
}
