package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"promptpilot/backend/internal/workflow"
)

// ErrorResponse is the JSON error envelope returned on every failure.
type ErrorResponse struct {
	Error     string               `json:"error"`
	Message   string               `json:"message"`
	RequestID string               `json:"requestId,omitempty"`
	Details   []workflow.Violation `json:"details,omitempty"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "workflow-relay",
		Version:   "1.0.0",
	})
}
