// Package api contains the HTTP handlers for the workflow relay.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"promptpilot/backend/internal/auth"
	"promptpilot/backend/internal/relay"
	"promptpilot/backend/internal/repository"
	"promptpilot/backend/pkg/models"
)

// WorkflowRunner is the relay surface the handlers depend on.
type WorkflowRunner interface {
	Run(ctx context.Context, userID string, req relay.RunRequest) (*relay.RunResult, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	Relay WorkflowRunner
	Store repository.RunStore
}

// NewServer creates a new Server.
func NewServer(r WorkflowRunner, store repository.RunStore) *Server {
	return &Server{Relay: r, Store: store}
}

// Register mounts the workflow routes on an (auth-gated) route group.
func (s *Server) Register(g *echo.Group) {
	g.POST("/workflows/run", s.RunWorkflow)
	g.GET("/workflows/runs/:id", s.GetRun)
}

type runWorkflowBody struct {
	Type   string          `json:"type"`
	Inputs json.RawMessage `json:"inputs"`
}

// RunResponse is the success payload for a relay call.
type RunResponse struct {
	RequestID string           `json:"requestId"`
	Status    models.RunStatus `json:"status"`
	Result    json.RawMessage  `json:"result,omitempty"`
	Cached    bool             `json:"cached,omitempty"`
}

// RunWorkflow relays one workflow request to the automation engine.
// (POST /api/v1/workflows/run)
func (s *Server) RunWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := ctx.Value(auth.UserIDKey).(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(relay.CodeUnauthenticated),
			Message: "user identity not found in context",
		})
	}

	var body runWorkflowBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(relay.CodeInvalidRequest),
			Message: "invalid request body",
		})
	}

	result, err := s.Relay.Run(ctx, userID, relay.RunRequest{
		Type:   body.Type,
		Inputs: body.Inputs,
	})
	if err != nil {
		return writeRelayError(c, err)
	}

	return c.JSON(http.StatusOK, RunResponse{
		RequestID: result.RequestID,
		Status:    result.Status,
		Result:    result.Result,
		Cached:    result.Cached,
	})
}

// RunView is the caller-facing projection of a ledger record.
type RunView struct {
	RequestID    string           `json:"requestId"`
	Type         string           `json:"type"`
	Status       models.RunStatus `json:"status"`
	Result       json.RawMessage  `json:"result,omitempty"`
	ErrorCode    *string          `json:"errorCode,omitempty"`
	ErrorMessage *string          `json:"errorMessage,omitempty"`
	CreatedAt    string           `json:"createdAt"`
	UpdatedAt    string           `json:"updatedAt"`
}

// GetRun returns the ledger record for one of the caller's runs.
// (GET /api/v1/workflows/runs/:id)
func (s *Server) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := ctx.Value(auth.UserIDKey).(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   string(relay.CodeUnauthenticated),
			Message: "user identity not found in context",
		})
	}

	id := c.Param("id")
	run, err := s.Store.FindByRequestID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   string(relay.CodeStorageFailure),
			Message: "failed to load run",
		})
	}
	if run == nil || run.UserID != userID {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "run not found",
		})
	}

	return c.JSON(http.StatusOK, RunView{
		RequestID:    run.RequestID,
		Type:         run.Kind,
		Status:       run.Status,
		Result:       run.OutputJSON,
		ErrorCode:    run.ErrorCode,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    run.UpdatedAt.Format(time.RFC3339),
	})
}

func writeRelayError(c echo.Context, err error) error {
	var relayErr *relay.Error
	if errors.As(err, &relayErr) {
		return c.JSON(relayErr.HTTPStatus, ErrorResponse{
			Error:     string(relayErr.Code),
			Message:   relayErr.Message,
			RequestID: relayErr.RequestID,
			Details:   relayErr.Details,
		})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}
