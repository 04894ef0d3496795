package constants

import "time"

// API endpoint defaults
const (
	// DefaultBaseURL is used when no base URL is configured at all.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// RefreshPath is the token rotation endpoint, relative to the base URL.
	RefreshPath  = "/auth/refresh"
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"

	// DefaultUserAgent identifies the client to the API.
	DefaultUserAgent = "fuelcoach-go"
)

// HTTP transport settings. The core relies on the transport's own defaults for
// request deadlines; these only bound connection setup.
const (
	DefaultDialTimeout         = 10 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultKeepAlive           = 30 * time.Second
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultMaxIdleConns        = 16

	// SharedRefreshTimeout bounds a coalesced refresh, which outlives the
	// context of the caller that started it.
	SharedRefreshTimeout = 30 * time.Second
)

// Header values
const (
	ContentTypeJSON = "application/json"
	BearerPrefix    = "Bearer "
)

// MaxErrorDetailLength caps the raw body text copied into error details.
const MaxErrorDetailLength = 200
