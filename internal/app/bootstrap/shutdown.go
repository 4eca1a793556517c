// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers, then closes the MongoDB client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.services != nil {
		if deps.services.loginCleanup != nil {
			deps.services.loginCleanup.Stop()
		}
		if deps.services.limiter != nil {
			deps.services.limiter.Stop()
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting LibraryHub MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
