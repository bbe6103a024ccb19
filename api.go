// Package ope turns an unstructured natural-language request into a fully
// specified, model-ready instruction set and validates the model's reply into
// a strict {answer, citations} shape.
//
// The pipeline is a chain of small pure stages:
//
//   - Enhancer: domain classification, ambiguity scoring, compound-question
//     structuring, definition and user-story expansion
//   - Overlay resolution: named role/constraint/decoding adjustments
//   - Task analysis and IR synthesis
//   - Prompt compilation into system/user text and decoding parameters
//   - Routing to an Adapter, the only I/O boundary
//   - Response validation and repair
//
// Stages run inside a pipz pipeline and emit capitan hooks for observability.
// The adapter call is the only suspension point; reliability options
// (retry, timeout, circuit breaker) wrap that call and are opt-in.
//
// Basic usage:
//
//	svc := ope.NewService(ope.ServiceConfig{
//	    Overlays:     overlays,
//	    Capabilities: ope.StaticCapabilities{Mock: true},
//	})
//	resp, err := svc.Execute(ctx, ope.Request{RawPrompt: "What is Kubernetes?"})
//	fmt.Println(resp.Output.Answer)
package ope

import (
	"context"
	"errors"
	"fmt"
)

// Adapter performs the actual model call. It is owned by the caller of the
// pipeline; the router only selects one.
type Adapter interface {
	// Call sends the compiled system and user text to a model and returns
	// its raw text reply. Failures are reported as *AdapterError.
	Call(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error)

	// Name returns the adapter identifier (e.g. "mock", "local-echo", "anthropic").
	Name() string

	// Model returns the model identifier the adapter targets.
	Model() string
}

// AdapterErrorKind classifies collaborator failures.
type AdapterErrorKind string

// Adapter failure kinds.
const (
	ErrKindConfigMissing   AdapterErrorKind = "CONFIG_MISSING"
	ErrKindNetwork         AdapterErrorKind = "NETWORK_ERROR"
	ErrKindInvalidResponse AdapterErrorKind = "INVALID_RESPONSE"
)

// AdapterError is the typed failure returned by an Adapter.
type AdapterError struct {
	Kind       AdapterErrorKind
	Adapter    string
	StatusCode int // HTTP status when known
	Err        error
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("%s adapter: %s", e.Adapter, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Client-visible request errors. They are returned before any pipeline stage
// runs and are never repaired.
var (
	ErrEmptyPrompt        = errors.New("rawPrompt is required")
	ErrUnknownContext     = errors.New("unknown context")
	ErrInvalidTaskType    = errors.New("invalid taskType")
	ErrInvalidHint        = errors.New("invalid targetHint")
	ErrInvalidEnhanceMode = errors.New("invalid enhance mode")
)

// IsClientError reports whether err is a request error the caller should
// surface as a bad request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, ErrUnknownContext) ||
		errors.Is(err, ErrInvalidTaskType) ||
		errors.Is(err, ErrInvalidHint) ||
		errors.Is(err, ErrInvalidEnhanceMode)
}

// Output is the strict shape every model reply is validated into.
type Output struct {
	Answer    string   `json:"answer" desc:"The answer text"`
	Citations []string `json:"citations" desc:"URLs or source identifiers"`
}

// Request is the boundary request shape.
type Request struct {
	RawPrompt  string      `json:"rawPrompt"`
	TaskType   TaskType    `json:"taskType,omitempty"`
	TargetHint Hint        `json:"targetHint,omitempty"`
	Context    string      `json:"context,omitempty"`
	Enhance    EnhanceMode `json:"enhance,omitempty"`
}

// Response is the boundary response shape.
type Response struct {
	Output Output `json:"output"`
	Meta   Meta   `json:"meta"`
}

// Meta carries the transparency record for a response.
type Meta struct {
	RequestID   string             `json:"requestId"`
	Model       string             `json:"model"`
	Adapter     string             `json:"adapter"`
	Context     string             `json:"context,omitempty"`
	AutoContext bool               `json:"contextAutoApplied,omitempty"`
	IR          PromptIR           `json:"ir"`
	Compiled    CompiledText       `json:"compiled"`
	Decoding    Decoding           `json:"decoding"`
	Validation  ValidationMeta     `json:"validation"`
	Enhancement *EnhancementResult `json:"enhancement,omitempty"`
	Display     string             `json:"display,omitempty"`
}

// CompiledText is the rendered system/user pair without decoding parameters.
type CompiledText struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// ValidationMeta summarizes the validator outcome for the caller.
type ValidationMeta struct {
	WasRepaired bool    `json:"wasRepaired"`
	ErrorKind   *string `json:"errorKind"`
	ErrorDetail *string `json:"errorDetail"`
}
