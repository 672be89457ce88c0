package constants

// Static route constants
const (
	APIPrefix   = "/api"
	V1Path      = "/v1"
	APIV1Prefix = APIPrefix + V1Path
	// Payments path relative to the v1 group
	PaymentsPath = "/payments"
	AdminPath    = "/admin"

	// Served outside the limiter
	MetricsRoute  = "/metrics"
	DocsBasePath  = "/docs/api/"
	OpenAPIV1File = "docs/v1/openapi.yml"
)
