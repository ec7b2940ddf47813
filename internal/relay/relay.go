// Package relay forwards validated, signed workflow requests to the external
// automation engine and tracks each run's lifecycle in the ledger.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"promptpilot/backend/internal/logging"
	"promptpilot/backend/internal/repository"
	"promptpilot/backend/internal/workflow"
	"promptpilot/backend/pkg/models"
)

// maxStoredErrorLen bounds the upstream error text persisted in the ledger.
const maxStoredErrorLen = 512

// RunRequest is the raw inbound unit of work after authentication: the
// discriminator plus the untyped inputs payload.
type RunRequest struct {
	Type   string
	Inputs json.RawMessage
}

// RunResult is what the caller gets back: the run's identity, its current
// status, the validated engine output when succeeded, and whether the result
// was served from the ledger instead of a fresh engine call.
type RunResult struct {
	RequestID string
	Status    models.RunStatus
	Result    json.RawMessage
	Cached    bool
}

// enginePayload is the canonical body posted to the engine. Server-assigned
// fields are set here; anything the client supplied for them has already
// been discarded by the strict inputs decode.
type enginePayload struct {
	RequestID string    `json:"requestId"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Inputs    any       `json:"inputs"`
	Timestamp time.Time `json:"timestamp"`
}

// Service is the relay orchestrator.
type Service struct {
	store    repository.RunStore
	engine   EngineCaller
	signer   *Signer
	executor *Executor
	logger   *logging.Logger
	newID    func() string
}

// NewService creates a new relay Service.
func NewService(store repository.RunStore, engine EngineCaller, signer *Signer, executor *Executor, logger *logging.Logger) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		signer:   signer,
		executor: executor,
		logger:   logger,
		newID: func() string {
			return "run_" + uuid.New().String()
		},
	}
}

// Run executes the relay state machine for one authenticated request:
// validate, idempotency check, queued insert, best-effort running mark,
// sign-once delivery through the executor, response schema gate, terminal
// ledger write. Phases are strictly sequential; the queued insert commits
// before any external call so a crash mid-flight leaves an inspectable
// record rather than an orphaned side effect.
func (s *Service) Run(ctx context.Context, userID string, req RunRequest) (*RunResult, error) {
	kind, err := workflow.ParseKind(req.Type)
	if err != nil {
		return nil, &Error{
			Code:       CodeInvalidRequest,
			HTTPStatus: http.StatusBadRequest,
			Message:    err.Error(),
			Details:    []workflow.Violation{{Field: "type", Rule: "oneof"}},
		}
	}

	inputs, err := workflow.ParseInputs(kind, req.Inputs)
	if err != nil {
		relayErr := &Error{
			Code:       CodeInvalidRequest,
			HTTPStatus: http.StatusBadRequest,
			Message:    "invalid inputs for workflow type " + string(kind),
			cause:      err,
		}
		if verr, ok := err.(*workflow.ValidationError); ok {
			relayErr.Details = verr.Violations
		}
		return nil, relayErr
	}

	requestID := s.newID()
	now := time.Now().UTC()

	// Defensive idempotency guard: the id is server-generated, so a hit here
	// means the same request was delivered twice at the transport layer. Any
	// stored state short-circuits without a new engine call.
	existing, err := s.store.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, storageError(requestID, "idempotency lookup failed", err)
	}
	if existing != nil {
		return cachedResult(existing), nil
	}

	inputJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, newError(CodeInvalidRequest, http.StatusBadRequest, "inputs are not serializable", err)
	}

	run := &models.WorkflowRun{
		RequestID: requestID,
		UserID:    userID,
		Kind:      string(kind),
		Status:    models.StatusQueued,
		InputJSON: inputJSON,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, run); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost an insert race for the same id; fold into the replay path
			existing, ferr := s.store.FindByRequestID(ctx, requestID)
			if ferr != nil || existing == nil {
				return nil, storageError(requestID, "conflicting run could not be loaded", ferr)
			}
			return cachedResult(existing), nil
		}
		return nil, storageError(requestID, "failed to record run", err)
	}

	s.store.TouchRunning(ctx, requestID)

	body, err := json.Marshal(enginePayload{
		RequestID: requestID,
		UserID:    userID,
		Type:      string(kind),
		Inputs:    inputs,
		Timestamp: now,
	})
	if err != nil {
		s.failRun(ctx, requestID, CodeStorageFailure, "payload marshal failed")
		return nil, storageError(requestID, "payload marshal failed", err)
	}

	// Sign once, outside the retry loop: every attempt carries the same
	// byte-identical envelope.
	env := Envelope{
		Body:      body,
		Signature: s.signer.Sign(body),
		RequestID: requestID,
	}

	var resp *EngineResponse
	execErr := s.executor.Do(ctx, func(ctx context.Context) error {
		r, callErr := s.engine.Call(ctx, env)
		if callErr != nil {
			// transport-level failure: worth another attempt
			return retry.RetryableError(callErr)
		}
		resp = r
		return nil
	})
	if execErr != nil {
		s.failRun(ctx, requestID, CodeTransportFailure, execErr.Error())
		e := newError(CodeTransportFailure, http.StatusServiceUnavailable, "could not reach automation engine", execErr)
		e.RequestID = requestID
		return nil, e
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("engine returned status %d: %s", resp.StatusCode, resp.Body)
		s.failRun(ctx, requestID, CodeUpstreamRejected, msg)
		status := resp.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusServiceUnavailable
		}
		e := newError(CodeUpstreamRejected, status, truncate(msg), nil)
		e.RequestID = requestID
		return nil, e
	}

	if err := workflow.ValidateOutput(kind, resp.Body); err != nil {
		s.failRun(ctx, requestID, CodeInvalidUpstreamResponse, "invalid response format: "+err.Error())
		e := newError(CodeInvalidUpstreamResponse, http.StatusInternalServerError, "invalid response format", err)
		e.RequestID = requestID
		return nil, e
	}

	if err := s.store.UpdateStatus(ctx, requestID, models.StatusSucceeded, repository.StatusPatch{
		OutputJSON: resp.Body,
	}); err != nil {
		return nil, storageError(requestID, "failed to record run result", err)
	}

	return &RunResult{
		RequestID: requestID,
		Status:    models.StatusSucceeded,
		Result:    resp.Body,
	}, nil
}

// failRun writes the terminal failed state. The write itself is logged on
// failure but does not mask the original error being surfaced to the caller.
func (s *Service) failRun(ctx context.Context, requestID string, code ErrorCode, msg string) {
	codeStr := string(code)
	truncated := truncate(msg)
	err := s.store.UpdateStatus(ctx, requestID, models.StatusFailed, repository.StatusPatch{
		ErrorCode:    &codeStr,
		ErrorMessage: &truncated,
	})
	if err != nil {
		s.logger.Error("failed to record terminal run state", "request_id", requestID, "code", codeStr, "error", err)
	}
}

func cachedResult(run *models.WorkflowRun) *RunResult {
	return &RunResult{
		RequestID: run.RequestID,
		Status:    run.Status,
		Result:    run.OutputJSON,
		Cached:    true,
	}
}

func storageError(requestID, msg string, cause error) *Error {
	e := newError(CodeStorageFailure, http.StatusInternalServerError, msg, cause)
	e.RequestID = requestID
	return e
}

func truncate(s string) string {
	if len(s) <= maxStoredErrorLen {
		return s
	}
	return s[:maxStoredErrorLen]
}
