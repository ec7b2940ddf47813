package repository

import (
	"context"
	"encoding/json"
	"errors"

	"promptpilot/backend/pkg/models"
)

var (
	// ErrConflict is returned when inserting a run whose request id already
	// exists in the ledger.
	ErrConflict = errors.New("run already exists")
	// ErrNotFound is returned when updating a run that is absent or already
	// in a terminal state.
	ErrNotFound = errors.New("run not found")
)

// StatusPatch carries the optional fields written alongside a status
// transition. Output and error are mutually exclusive.
type StatusPatch struct {
	OutputJSON   json.RawMessage
	ErrorCode    *string
	ErrorMessage *string
}

// RunStore is the run ledger: one record per logical request, keyed by the
// server-assigned request id.
type RunStore interface {
	// Insert durably creates a run at status queued. It must be atomic:
	// two concurrent inserts with the same request id cannot both succeed.
	Insert(ctx context.Context, run *models.WorkflowRun) error
	// UpdateStatus transitions a run forward. Terminal runs are never
	// re-entered; updating one returns ErrNotFound.
	UpdateStatus(ctx context.Context, requestID string, status models.RunStatus, patch StatusPatch) error
	// TouchRunning is the best-effort counterpart of UpdateStatus used for
	// the queued -> running transition. Failures are logged, never
	// propagated: the relay does not block the external call on a purely
	// observability write. Keep it separate from UpdateStatus so the two
	// write disciplines don't get unified by accident.
	TouchRunning(ctx context.Context, requestID string)
	// FindByRequestID returns the run, or nil when absent.
	FindByRequestID(ctx context.Context, requestID string) (*models.WorkflowRun, error)

	// GetUserBySubject returns the user provisioned for a token subject.
	GetUserBySubject(ctx context.Context, subject string) (*models.User, error)
	// CreateUser provisions a user row, filling in its id.
	CreateUser(ctx context.Context, user *models.User) error

	Ping(ctx context.Context) error
}
