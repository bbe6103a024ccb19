// Package opetest provides adapters and builders for testing ope pipelines.
package opetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srdjan/ope"
	"github.com/zoobzio/capitan"
)

// Adapter name constants for test helpers.
const (
	SequencedAdapterName = "sequenced-mock"
	FailingAdapterName   = "failing-mock"
	TestModelID          = "test-model"
)

// ResponseBuilder provides a fluent interface for constructing model replies.
type ResponseBuilder struct {
	data map[string]any
}

// NewResponseBuilder creates a new ResponseBuilder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		data: make(map[string]any),
	}
}

// WithAnswer sets the answer field.
func (b *ResponseBuilder) WithAnswer(answer string) *ResponseBuilder {
	b.data["answer"] = answer
	return b
}

// WithCitations sets the citations field.
func (b *ResponseBuilder) WithCitations(citations ...string) *ResponseBuilder {
	if citations == nil {
		citations = []string{}
	}
	b.data["citations"] = citations
	return b
}

// WithField sets an arbitrary field, including malformed values for
// exercising repair.
func (b *ResponseBuilder) WithField(key string, value any) *ResponseBuilder {
	b.data[key] = value
	return b
}

// Without removes a field.
func (b *ResponseBuilder) Without(key string) *ResponseBuilder {
	delete(b.data, key)
	return b
}

// Build returns the JSON string representation of the reply.
func (b *ResponseBuilder) Build() string {
	jsonBytes, err := json.Marshal(b.data)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// SequencedAdapter returns replies in sequence.
// After all replies are exhausted, it returns the last reply repeatedly.
type SequencedAdapter struct {
	replies []string
	index   atomic.Int64
}

// NewSequencedAdapter creates an adapter that returns replies in order.
func NewSequencedAdapter(replies ...string) *SequencedAdapter {
	if len(replies) == 0 {
		replies = []string{`{"error": "no replies configured"}`}
	}
	return &SequencedAdapter{replies: replies}
}

// Call returns the next reply in sequence.
func (a *SequencedAdapter) Call(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	idx := a.index.Add(1) - 1
	if int(idx) >= len(a.replies) {
		idx = int64(len(a.replies) - 1)
	}
	return a.replies[idx], nil
}

// Name returns the adapter identifier.
func (*SequencedAdapter) Name() string {
	return SequencedAdapterName
}

// Model returns the test model identifier.
func (*SequencedAdapter) Model() string {
	return TestModelID
}

// CallCount returns the number of calls made.
func (a *SequencedAdapter) CallCount() int {
	return int(a.index.Load())
}

// Reset resets the call counter.
func (a *SequencedAdapter) Reset() {
	a.index.Store(0)
}

// FailingAdapter fails a specified number of times before succeeding.
type FailingAdapter struct {
	failCount    int
	currentCount atomic.Int64
	successReply string
	kind         ope.AdapterErrorKind
}

// NewFailingAdapter creates an adapter that fails failCount times then succeeds.
func NewFailingAdapter(failCount int) *FailingAdapter {
	return &FailingAdapter{
		failCount:    failCount,
		successReply: `{"answer":"recovered","citations":[]}`,
		kind:         ope.ErrKindNetwork,
	}
}

// WithSuccessReply sets the reply returned after failures are exhausted.
func (a *FailingAdapter) WithSuccessReply(reply string) *FailingAdapter {
	a.successReply = reply
	return a
}

// WithKind sets the error kind reported for failures.
func (a *FailingAdapter) WithKind(kind ope.AdapterErrorKind) *FailingAdapter {
	a.kind = kind
	return a
}

// Call fails until failCount is reached, then succeeds.
func (a *FailingAdapter) Call(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	count := a.currentCount.Add(1)
	if int(count) <= a.failCount {
		return "", &ope.AdapterError{
			Kind:    a.kind,
			Adapter: FailingAdapterName,
			Err:     fmt.Errorf("simulated failure (attempt %d/%d)", count, a.failCount),
		}
	}
	return a.successReply, nil
}

// Name returns the adapter identifier.
func (*FailingAdapter) Name() string {
	return FailingAdapterName
}

// Model returns the test model identifier.
func (*FailingAdapter) Model() string {
	return TestModelID
}

// CallCount returns the number of calls made.
func (a *FailingAdapter) CallCount() int {
	return int(a.currentCount.Load())
}

// RecordedCall represents a single call to an adapter.
type RecordedCall struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// CallRecorder wraps an adapter and records all calls made to it.
type CallRecorder struct {
	adapter ope.Adapter
	calls   []RecordedCall
	mu      sync.Mutex
}

// NewCallRecorder wraps an adapter with call recording.
func NewCallRecorder(adapter ope.Adapter) *CallRecorder {
	return &CallRecorder{
		adapter: adapter,
		calls:   make([]RecordedCall, 0),
	}
}

// Call delegates to the wrapped adapter and records the call.
func (r *CallRecorder) Call(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, RecordedCall{
		System:      system,
		User:        user,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	r.mu.Unlock()

	return r.adapter.Call(ctx, system, user, maxTokens, temperature)
}

// Name returns the wrapped adapter's name.
func (r *CallRecorder) Name() string {
	return r.adapter.Name()
}

// Model returns the wrapped adapter's model.
func (r *CallRecorder) Model() string {
	return r.adapter.Model()
}

// Calls returns a copy of all recorded calls.
func (r *CallRecorder) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]RecordedCall, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// CallCount returns the number of calls recorded.
func (r *CallRecorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// LastCall returns the most recent call, or nil if no calls made.
func (r *CallRecorder) LastCall() *RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}
	call := r.calls[len(r.calls)-1]
	return &call
}

// LatencyAdapter wraps an adapter and adds artificial latency.
type LatencyAdapter struct {
	adapter ope.Adapter
	delay   time.Duration
}

// NewLatencyAdapter wraps an adapter with artificial delay.
// The delay respects context cancellation and surfaces it as NETWORK_ERROR.
func NewLatencyAdapter(adapter ope.Adapter, delay time.Duration) *LatencyAdapter {
	return &LatencyAdapter{adapter: adapter, delay: delay}
}

// Call adds latency then delegates to the wrapped adapter.
func (a *LatencyAdapter) Call(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", &ope.AdapterError{Kind: ope.ErrKindNetwork, Adapter: a.adapter.Name(), Err: ctx.Err()}
		}
	}
	return a.adapter.Call(ctx, system, user, maxTokens, temperature)
}

// Name returns the wrapped adapter's name.
func (a *LatencyAdapter) Name() string {
	return a.adapter.Name()
}

// Model returns the wrapped adapter's model.
func (a *LatencyAdapter) Model() string {
	return a.adapter.Model()
}

// UsageAccumulator tracks token usage reported through the AdapterUsage hook.
type UsageAccumulator struct {
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	callCount        atomic.Int64
	stop             func()
}

// NewUsageAccumulator creates an accumulator that listens for usage events
// until Close is called.
func NewUsageAccumulator() *UsageAccumulator {
	a := &UsageAccumulator{}
	listener := capitan.Hook(ope.AdapterUsage, func(_ context.Context, e *capitan.Event) {
		prompt, _ := ope.PromptTokensKey.From(e)
		completion, _ := ope.CompletionTokensKey.From(e)
		a.AddUsage(prompt, completion)
	})
	a.stop = func() { listener.Close() }
	return a
}

// AddUsage accumulates usage directly.
func (a *UsageAccumulator) AddUsage(prompt, completion int) {
	a.promptTokens.Add(int64(prompt))
	a.completionTokens.Add(int64(completion))
	a.callCount.Add(1)
}

// PromptTokens returns total prompt tokens.
func (a *UsageAccumulator) PromptTokens() int {
	return int(a.promptTokens.Load())
}

// CompletionTokens returns total completion tokens.
func (a *UsageAccumulator) CompletionTokens() int {
	return int(a.completionTokens.Load())
}

// CallCount returns the number of usage reports seen.
func (a *UsageAccumulator) CallCount() int {
	return int(a.callCount.Load())
}

// Close stops listening for usage events.
func (a *UsageAccumulator) Close() {
	if a.stop != nil {
		a.stop()
	}
}

var errNoReply = errors.New("no reply")

// ErrorAdapter always fails with the given kind.
type ErrorAdapter struct {
	Kind ope.AdapterErrorKind
}

// Call always returns an *ope.AdapterError.
func (a ErrorAdapter) Call(context.Context, string, string, int, float64) (string, error) {
	return "", &ope.AdapterError{Kind: a.Kind, Adapter: "error-mock", Err: errNoReply}
}

// Name returns the adapter identifier.
func (ErrorAdapter) Name() string {
	return "error-mock"
}

// Model returns the test model identifier.
func (ErrorAdapter) Model() string {
	return TestModelID
}
