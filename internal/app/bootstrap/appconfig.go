// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, CORS, and request body limits. AppConfig is
// where everything specific to TeamHub lives: the MongoDB connection,
// session cookies, Google OAuth credentials, audit logging switches, and
// the notification fan-out pool size.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm in the driver pool

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth redirects (e.g., "https://teamhub.example.com")
	BaseURL string

	// Audit logging settings: "all" (db+log), "db", "log", or "off"
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogNotify string

	// Notification fan-out worker pool size
	FanoutPoolSize int

	// SuperAdmin bootstrap: email promoted/created on startup
	SuperAdminEmail string
}
