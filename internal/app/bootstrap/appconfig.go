// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// framework-level settings (ports, TLS, logging, CORS); AppConfig is
// everything specific to this application.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: edusync-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Identity provider (token verification at login)
	IdentityVerifyURL string        // Provider endpoint that verifies identity tokens
	IdentityAPIKey    string        // API key appended to verification requests
	IdentityTimeout   time.Duration // Per-verification HTTP timeout

	// Storage bridge (signing and uploads)
	BridgeURL     string        // Base URL of the storage bridge
	BridgeTimeout time.Duration // Per-call HTTP timeout
	SignTTL       time.Duration // Lifetime of signed download URLs

	// Background maintenance
	NotifRetention       time.Duration // How long read notifications are kept
	NotifCleanupInterval time.Duration // How often the cleanup worker runs
	EngineIdleTTL        time.Duration // How long a user's sync engine survives without reads
}
