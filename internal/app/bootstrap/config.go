// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for EduSync.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: EDUSYNC_MONGO_URI, EDUSYNC_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "edusync", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "edusync-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Identity provider
	{Name: "identity_verify_url", Default: "", Desc: "Identity provider token verification endpoint"},
	{Name: "identity_api_key", Default: "", Desc: "API key for the identity provider"},
	{Name: "identity_timeout", Default: "10s", Desc: "Identity verification HTTP timeout"},

	// Storage bridge
	{Name: "bridge_url", Default: "http://localhost:8787", Desc: "Base URL of the storage bridge"},
	{Name: "bridge_timeout", Default: "30s", Desc: "Storage bridge HTTP timeout"},
	{Name: "sign_ttl", Default: "15m", Desc: "Lifetime of signed download URLs"},

	// Background maintenance
	{Name: "notif_retention", Default: "720h", Desc: "How long read notifications are kept (default: 30 days)"},
	{Name: "notif_cleanup_interval", Default: "1h", Desc: "How often the notification cleanup worker runs"},
	{Name: "engine_idle_ttl", Default: "10m", Desc: "How long an idle per-user sync engine is kept alive"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, EDUSYNC_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EDUSYNC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		IdentityVerifyURL: appValues.String("identity_verify_url"),
		IdentityAPIKey:    appValues.String("identity_api_key"),
		IdentityTimeout:   appValues.Duration("identity_timeout", 10*time.Second),

		BridgeURL:     appValues.String("bridge_url"),
		BridgeTimeout: appValues.Duration("bridge_timeout", 30*time.Second),
		SignTTL:       appValues.Duration("sign_ttl", 15*time.Minute),

		NotifRetention:       appValues.Duration("notif_retention", 30*24*time.Hour),
		NotifCleanupInterval: appValues.Duration("notif_cleanup_interval", time.Hour),
		EngineIdleTTL:        appValues.Duration("engine_idle_ttl", 10*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// EduSync validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect, and refuses to start in
// production without a token verification endpoint and session key.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" {
		if appCfg.IdentityVerifyURL == "" {
			return fmt.Errorf("identity_verify_url is required in production")
		}
		if appCfg.SessionKey == "" {
			return fmt.Errorf("session_key is required in production")
		}
	}

	if appCfg.NotifCleanupInterval <= 0 || appCfg.NotifRetention <= 0 {
		return fmt.Errorf("notif_retention and notif_cleanup_interval must be positive")
	}
	if appCfg.EngineIdleTTL <= 0 {
		return fmt.Errorf("engine_idle_ttl must be positive")
	}

	return nil
}
