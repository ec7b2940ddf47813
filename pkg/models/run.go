package models

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a workflow run. Transitions are
// forward-only: queued -> running -> succeeded | failed.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// WorkflowRun is the persisted lifecycle record of one workflow execution,
// keyed by the server-assigned request id.
type WorkflowRun struct {
	RequestID    string          `json:"request_id"`
	UserID       string          `json:"user_id"`
	Kind         string          `json:"kind"`
	Status       RunStatus       `json:"status"`
	InputJSON    json.RawMessage `json:"input_json,omitempty"`
	OutputJSON   json.RawMessage `json:"output_json,omitempty"`
	ErrorCode    *string         `json:"error_code,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
