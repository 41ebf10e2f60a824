package models

// FetchProductResponse is the success envelope for POST /api/fetch-product.
type FetchProductResponse struct {
	OK   bool               `json:"ok"`
	Data *NormalizedProduct `json:"data"`

	// Cached is set when the result was served from the response cache
	// without touching the rate limiter or any extraction strategy.
	Cached bool `json:"cached,omitempty"`
}

// ErrorResponse is the failure envelope. Error is always one of a small
// set of stable, classifiable strings; Detail may carry the underlying
// message for diagnostics.
type ErrorResponse struct {
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Uptime    string    `json:"uptime,omitempty"`
	PoolStats PoolStats `json:"pool_stats"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
