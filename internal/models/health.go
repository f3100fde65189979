package models

// HealthStatus is the response of the service's GET /api/health.
type HealthStatus struct {
	Message string `json:"message"`
}
