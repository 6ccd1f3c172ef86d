// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/casegen/llm"
)

// MockCompleter is a thread-safe llm.Completer for tests. It returns the
// configured contents in sequence and records every request.
//
// Usage:
//
//	mock := &MockCompleter{Contents: []string{`[{"id":"REQ-001"}]`}}
//	gw := llm.NewGateway(mock)
//
//	// Backend failure
//	mock := &MockCompleter{Err: errors.New("connection refused")}
type MockCompleter struct {
	mu        sync.Mutex
	Contents  []string // Completions to return in sequence
	Err       error    // Returned instead of a completion when set
	requests  []llm.Request
	nextIndex int

	// Respond, when set, computes the completion from the request and takes
	// precedence over Contents. Used by concurrent tests where call order is
	// not deterministic.
	Respond func(req llm.Request) (string, error)
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	respond := m.Respond
	err := m.Err
	var content string
	if respond == nil && err == nil && m.nextIndex < len(m.Contents) {
		content = m.Contents[m.nextIndex]
		m.nextIndex++
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if respond != nil {
		out, rerr := respond(req)
		if rerr != nil {
			return nil, rerr
		}
		content = out
	}
	return &llm.Response{Content: content, Model: "test-model"}, nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastPrompt returns the content of the last user message received.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	msgs := m.requests[len(m.requests)-1].Messages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// Reset clears recorded requests and rewinds Contents.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.nextIndex = 0
}
