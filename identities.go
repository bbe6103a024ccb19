package ope

import "github.com/zoobzio/pipz"

// Identities of the pipeline stages.
var (
	PrepareID      = pipz.NewIdentity("prepare", "Runs the pure prompt preparation stages")
	PipelineID     = pipz.NewIdentity("ope", "Prepares, calls and validates a request")
	EnhanceID      = pipz.NewIdentity("enhance", "Classifies and enhances the prompt")
	OverlayID      = pipz.NewIdentity("overlay", "Applies the context overlay")
	RequirementsID = pipz.NewIdentity("requirements", "Analyzes task requirements")
	SynthesizeID   = pipz.NewIdentity("synthesize", "Builds the prompt IR")
	CompileID      = pipz.NewIdentity("compile", "Compiles the IR into messages")
	RouteID        = pipz.NewIdentity("route", "Selects an adapter")
	AdapterCallID  = pipz.NewIdentity("adapter-call", "Calls the routed adapter")
	FallbackCallID = pipz.NewIdentity("fallback-call", "Calls the fallback adapter")
	ValidateID     = pipz.NewIdentity("validate", "Validates and repairs the reply")
)

// Identities of the adapter-call wrappers installed by options.
var (
	RetryID           = pipz.NewIdentity("retry", "Retries failed adapter calls")
	BackoffID         = pipz.NewIdentity("backoff", "Retries failed adapter calls with exponential backoff")
	TimeoutID         = pipz.NewIdentity("timeout", "Bounds adapter call duration")
	CircuitBreakerID  = pipz.NewIdentity("circuit-breaker", "Fails fast after consecutive adapter failures")
	RateLimitID       = pipz.NewIdentity("rate-limit", "Limits adapter calls per second")
	ErrorHandlerID    = pipz.NewIdentity("error-handler", "Passes adapter failures to a handler")
	FallbackAdapterID = pipz.NewIdentity("fallback-adapter", "Calls the fallback adapter when the routed one fails")
	DebugID           = pipz.NewIdentity("debug", "Writes compiled prompts and replies for debugging")
)
