package ope

import "github.com/zoobzio/capitan"

// Signals for hook events.
var (
	RequestStarted       = capitan.NewSignal("ope.request.started", "Request started")
	RequestCompleted     = capitan.NewSignal("ope.request.completed", "Request completed")
	RequestFailed        = capitan.NewSignal("ope.request.failed", "Request failed")
	EnhancementApplied   = capitan.NewSignal("ope.enhancement.applied", "Enhancement applied")
	ContextAutoApplied   = capitan.NewSignal("ope.context.auto_applied", "Context overlay applied automatically")
	OverlayRejected      = capitan.NewSignal("ope.overlay.rejected", "Context overlay rejected")
	RouteSelected        = capitan.NewSignal("ope.route.selected", "Route selected")
	AdapterCallStarted   = capitan.NewSignal("ope.adapter.call.started", "Adapter call started")
	AdapterCallCompleted = capitan.NewSignal("ope.adapter.call.completed", "Adapter call completed")
	AdapterCallFailed    = capitan.NewSignal("ope.adapter.call.failed", "Adapter call failed")
	ResponseRepaired     = capitan.NewSignal("ope.response.repaired", "Response repaired")
	AdapterUsage         = capitan.NewSignal("ope.adapter.usage", "Adapter token usage")
)

// Keys for hook event fields.
var (
	// Request identification.
	RequestIDKey = capitan.NewStringKey("ope.request.id")
	TaskTypeKey  = capitan.NewStringKey("ope.task.type")

	// Analysis.
	DomainKey       = capitan.NewStringKey("ope.domain")
	AmbiguityKey    = capitan.NewFloat64Key("ope.ambiguity")
	EnhancementsKey = capitan.NewStringKey("ope.enhancements")
	ContextKey      = capitan.NewStringKey("ope.context")

	// Routing.
	AdapterKey = capitan.NewStringKey("ope.adapter")
	ModelKey   = capitan.NewStringKey("ope.model")

	// Decoding.
	TemperatureKey = capitan.NewFloat64Key("ope.temperature")
	MaxTokensKey   = capitan.NewIntKey("ope.max_tokens")

	// Error information.
	ErrorKey          = capitan.NewStringKey("ope.error")
	ErrorKindKey      = capitan.NewStringKey("ope.error.kind")
	HTTPStatusCodeKey = capitan.NewIntKey("ope.http.status.code")
	RepairReasonKey   = capitan.NewStringKey("ope.repair.reason")

	// Metrics.
	DurationMsKey       = capitan.NewIntKey("ope.duration.ms")
	PromptTokensKey     = capitan.NewIntKey("ope.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("ope.tokens.completion")
	FinishReasonKey     = capitan.NewStringKey("ope.finish.reason")
)
