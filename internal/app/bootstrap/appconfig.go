// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for LibraryHub.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything the library
// service itself needs lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Browser origins allowed to call the API with credentials
	CORSAllowedOrigins []string

	// Number of books returned by the featured/preview listing
	PreviewLimit int64

	// Store call deadlines; zero keeps the timeouts package default
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration

	// POST /users throttle per client IP; a rate of 0 disables it
	LoginRatePerSec float64
	LoginBurst      int

	// Login history retention
	LoginRetention     time.Duration // records older than this are pruned
	LoginPruneInterval time.Duration // how often the pruner runs
}
