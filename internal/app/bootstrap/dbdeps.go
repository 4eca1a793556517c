// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/libraryhub/internal/app/system/metrics"
	"github.com/dalemusser/libraryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/libraryhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook, so state created in Startup
// and torn down in Shutdown hangs off the shared services pointer.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	services *services
}

// services is the process-wide state built during Startup.
type services struct {
	metrics      *metrics.Metrics
	loginCleanup *workers.LoginCleanup
	limiter      *ratelimit.Limiter
}
