package ope

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Built-in adapter identifiers.
const (
	MockAdapterName = "mock"
	MockModelID     = "mock-model"
	EchoAdapterName = "local-echo"
	EchoModelID     = "local-echo"
)

const (
	mockCitation    = "https://example.com/mock-source"
	mockTaskPreview = 120
)

// MockAdapter returns deterministic, contract-conforming replies built from
// the TASK line of the user message. It never reaches the network.
type MockAdapter struct{}

// NewMockAdapter creates the built-in mock adapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (*MockAdapter) Name() string  { return MockAdapterName }
func (*MockAdapter) Model() string { return MockModelID }

// Call builds a JSON reply that echoes the first line of the task.
func (m *MockAdapter) Call(ctx context.Context, _, user string, _ int, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &AdapterError{Kind: ErrKindNetwork, Adapter: m.Name(), Err: err}
	}
	task, _, _ := strings.Cut(TaskText(user), "\n")
	out := Output{
		Answer:    "Mock answer for: " + preview(task, mockTaskPreview),
		Citations: []string{mockCitation},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", &AdapterError{Kind: ErrKindInvalidResponse, Adapter: m.Name(), Err: err}
	}
	return string(data), nil
}

// EchoAdapter is the local fallback when no model endpoint is reachable. It
// replies with plain text, so its output always goes through repair.
type EchoAdapter struct{}

// NewEchoAdapter creates the built-in local echo adapter.
func NewEchoAdapter() *EchoAdapter {
	return &EchoAdapter{}
}

func (*EchoAdapter) Name() string  { return EchoAdapterName }
func (*EchoAdapter) Model() string { return EchoModelID }

// Call echoes the task text back.
func (e *EchoAdapter) Call(ctx context.Context, _, user string, _ int, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &AdapterError{Kind: ErrKindNetwork, Adapter: e.Name(), Err: err}
	}
	return "ECHO: " + TaskText(user), nil
}

// NewMockAdapterWithResponse creates an adapter that always returns response.
func NewMockAdapterWithResponse(response string) Adapter {
	return &fixedAdapter{response: response}
}

// NewMockAdapterWithCallback creates an adapter that delegates to callback.
func NewMockAdapterWithCallback(callback func(system, user string, maxTokens int, temperature float64) (string, error)) Adapter {
	return &callbackAdapter{callback: callback}
}

type fixedAdapter struct {
	response string
}

func (*fixedAdapter) Name() string  { return "mock-fixed" }
func (*fixedAdapter) Model() string { return MockModelID }

func (f *fixedAdapter) Call(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	return f.response, nil
}

type callbackAdapter struct {
	callback func(string, string, int, float64) (string, error)
}

func (*callbackAdapter) Name() string  { return "mock-callback" }
func (*callbackAdapter) Model() string { return MockModelID }

func (c *callbackAdapter) Call(_ context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	return c.callback(system, user, maxTokens, temperature)
}

func preview(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
