// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	booksfeature "github.com/dalemusser/libraryhub/internal/app/features/books"
	borrowfeature "github.com/dalemusser/libraryhub/internal/app/features/borrow"
	healthfeature "github.com/dalemusser/libraryhub/internal/app/features/health"
	homefeature "github.com/dalemusser/libraryhub/internal/app/features/home"
	usersfeature "github.com/dalemusser/libraryhub/internal/app/features/users"
	"github.com/dalemusser/libraryhub/internal/app/services/catalog"
	"github.com/dalemusser/libraryhub/internal/app/services/directory"
	"github.com/dalemusser/libraryhub/internal/app/services/ledger"
	bookstore "github.com/dalemusser/libraryhub/internal/app/store/books"
	borrowstore "github.com/dalemusser/libraryhub/internal/app/store/borrows"
	loginstore "github.com/dalemusser/libraryhub/internal/app/store/logins"
	userstore "github.com/dalemusser/libraryhub/internal/app/store/users"
	"github.com/dalemusser/libraryhub/internal/app/system/metrics"
	"github.com/dalemusser/libraryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/libraryhub/internal/app/system/reqlog"
	"github.com/dalemusser/libraryhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for LibraryHub.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the stores and services over
// the shared database, applies the global middleware (request id and
// logging, panic recovery, metrics, CORS) and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	m := metrics.New()
	if deps.services != nil && deps.services.metrics != nil {
		m = deps.services.metrics
	}

	db := deps.MongoDatabase
	catalogSvc := catalog.New(bookstore.New(db), logger)
	ledgerSvc := ledger.New(borrowstore.New(db), m.Borrows, logger)
	directorySvc := directory.New(userstore.New(db), loginstore.New(db), m.Logins, logger)

	limiter := ratelimit.New(appCfg.LoginRatePerSec, appCfg.LoginBurst)
	if deps.services != nil {
		deps.services.limiter = limiter
	}

	return newRouter(routerDeps{
		corsOrigins: appCfg.CORSAllowedOrigins,
		metrics:     m,
		health:      healthfeature.NewHandler(db, logger),
		home:        homefeature.NewHandler(logger),
		books:       booksfeature.NewHandler(catalogSvc, appCfg.PreviewLimit, logger),
		borrow:      borrowfeature.NewHandler(ledgerSvc, logger),
		users:       usersfeature.NewHandler(directorySvc, limiter, logger),
	}, logger), nil
}

// routerDeps is everything newRouter mounts; split out so tests can build
// the router over fakes.
type routerDeps struct {
	corsOrigins []string
	metrics     *metrics.Metrics
	health      *healthfeature.Handler
	home        *homefeature.Handler
	books       *booksfeature.Handler
	borrow      *borrowfeature.Handler
	users       *usersfeature.Handler
}

func newRouter(d routerDeps, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(reqlog.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(d.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", reqlog.Header},
		ExposedHeaders:   []string{reqlog.Header},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(d.health))
	r.Handle("/metrics", d.metrics.Handler())

	r.Mount("/", homefeature.Routes(d.home))

	// Catalog
	r.Mount("/book", booksfeature.Routes(d.books))
	r.Mount("/books", booksfeature.AliasRoutes(d.books))

	// Borrow ledger
	r.Mount("/borrow", borrowfeature.Routes(d.borrow))

	// User directory
	r.Mount("/users", usersfeature.Routes(d.users))

	return r
}
