package relay

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Envelope is the outbound wire message for one run: the immutable payload
// bytes plus the signature and request id headers. It is built once per run
// and reused verbatim on every attempt.
type Envelope struct {
	Body      []byte
	Signature string
	RequestID string
}

// EngineResponse is the raw outcome of one delivery attempt that reached the
// engine. Non-2xx statuses are application-level outcomes, not transport
// errors.
type EngineResponse struct {
	StatusCode int
	Body       []byte
}

// EngineCaller delivers a signed envelope to the automation engine. An error
// return means the engine was not reached (timeout, connection refused,
// DNS); those are the only failures the executor retries.
type EngineCaller interface {
	Call(ctx context.Context, env Envelope) (*EngineResponse, error)
}

// HTTPEngine posts signed envelopes to the configured webhook URL.
type HTTPEngine struct {
	client *resty.Client
	url    string
}

// NewHTTPEngine creates an HTTPEngine. Client-side retries stay disabled;
// the retry budget belongs to the Executor.
func NewHTTPEngine(webhookURL string) *HTTPEngine {
	client := resty.New().SetRetryCount(0)
	return &HTTPEngine{client: client, url: webhookURL}
}

// Call performs one delivery attempt. The per-attempt deadline comes from
// ctx.
func (e *HTTPEngine) Call(ctx context.Context, env Envelope) (*EngineResponse, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Signature", env.Signature).
		SetHeader("X-Request-Id", env.RequestID).
		SetBody(env.Body).
		Post(e.url)
	if err != nil {
		return nil, fmt.Errorf("engine call: %w", err)
	}
	return &EngineResponse{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
