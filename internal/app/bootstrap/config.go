// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// defaultCORSOrigins are the deployed web client and its local dev server.
const defaultCORSOrigins = "http://localhost:5173,https://library-management-72606.firebaseapp.com,https://library-management-72606.web.app"

// appConfigKeys defines the configuration keys for LibraryHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, preview_limit, etc.
//   - Environment variables: LIBRARYHUB_MONGO_URI, LIBRARYHUB_PREVIEW_LIMIT, etc.
//   - Command-line flags: --mongo_uri, --preview_limit, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "libraryManagement", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	// HTTP surface
	{Name: "cors_allowed_origins", Default: defaultCORSOrigins, Desc: "Comma-separated origins allowed by CORS"},
	{Name: "preview_limit", Default: 6, Desc: "Books returned by /book/two and the default /book/preview"},

	// Store deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document MongoDB operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for MongoDB list queries"},

	// Login throttle
	{Name: "login_rate_per_sec", Default: "1", Desc: "Sustained POST /users requests per client IP per second (0 disables)"},
	{Name: "login_burst", Default: 10, Desc: "POST /users burst size per client IP"},

	// Login history retention
	{Name: "login_retention", Default: "2160h", Desc: "How long login records are kept (e.g., 2160h for 90 days)"},
	{Name: "login_prune_interval", Default: "1h", Desc: "How often expired login records are pruned"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, LIBRARYHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LIBRARYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	rate, err := parseRate(appValues.String("login_rate_per_sec"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
		PreviewLimit:       int64(appValues.Int("preview_limit")),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),

		LoginRatePerSec: rate,
		LoginBurst:      appValues.Int("login_burst"),

		LoginRetention:     appValues.Duration("login_retention", 90*24*time.Hour),
		LoginPruneInterval: appValues.Duration("login_prune_interval", time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here so a typo fails fast instead of at the
// first request.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

// validateApp checks the invariants that do not depend on WAFFLE.
func validateApp(appCfg AppConfig) error {
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if appCfg.PreviewLimit <= 0 {
		return fmt.Errorf("preview_limit must be positive, got %d", appCfg.PreviewLimit)
	}
	if appCfg.TimeoutShort < 0 || appCfg.TimeoutMedium < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if appCfg.LoginRatePerSec < 0 || appCfg.LoginBurst < 0 {
		return fmt.Errorf("login_rate_per_sec and login_burst must not be negative")
	}
	if appCfg.LoginRetention <= 0 || appCfg.LoginPruneInterval <= 0 {
		return fmt.Errorf("login_retention and login_prune_interval must be positive")
	}
	return nil
}

// splitList turns "a, b,,c" into ["a" "b" "c"].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid login_rate_per_sec %q: %w", s, err)
	}
	return v, nil
}
