package models

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Engine  string `json:"engine"`
	Storage string `json:"storage"` // "ok" or the ping error
	Version string `json:"version"`
}
