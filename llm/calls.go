package llm

import (
	"context"
	"time"
)

// CallRecord describes one completion call for the call log.
type CallRecord struct {
	RequestID     string     `json:"request_id"`
	Intent        string     `json:"intent"`
	Capability    string     `json:"capability"`
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	Usage         TokenUsage `json:"usage"`
	FinishReason  string     `json:"finish_reason,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	DurationMs    int64      `json:"duration_ms"`
	Retries       int        `json:"retries"`
	FallbacksUsed []string   `json:"fallbacks_used,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// CallRecorder persists call records. Recording failures never fail the call.
type CallRecorder interface {
	RecordCall(ctx context.Context, record *CallRecord) error
}
