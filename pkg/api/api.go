// Package api defines the public API endpoints of the studentauth server.
package api

// API version
const Version = "0.1.0"

// API endpoints
const (
	EndpointValidate     = "/api/v1/validate"
	EndpointRegister     = "/api/v1/register"
	EndpointLogin        = "/api/v1/login"
	EndpointLogout       = "/api/v1/logout"
	EndpointMe           = "/api/v1/me"
	EndpointScore        = "/api/v1/score"
	EndpointStudents     = "/api/v1/students"
	EndpointAuditSummary = "/api/v1/audit/summary"
	EndpointHealth       = "/health"
	EndpointReady        = "/readyz"
)

// HTTP headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
)

// Query parameters for the student listing.
const (
	ParamPassoutYear = "passout_year"
	ParamBranch      = "branch"
	ParamSearch      = "q"
	ParamLimit       = "limit"
)
