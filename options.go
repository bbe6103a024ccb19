package ope

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zoobzio/pipz"
)

// Option wraps the adapter-call stage with a reliability feature. Options
// never touch the pure prepare stages.
type Option func(pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest]

// WithRetry retries failed adapter calls up to maxAttempts times in total,
// with no delay between attempts. Client errors never reach this stage. The
// last adapter error is returned when every attempt fails.
func WithRetry(maxAttempts int) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewRetry(RetryID, call, maxAttempts)
	}
}

// WithBackoff retries failed adapter calls, doubling the wait after each
// failure starting at baseDelay. The wait honors context cancellation.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewBackoff(BackoffID, call, maxAttempts, baseDelay)
	}
}

// WithTimeout bounds each adapter call. The adapter sees a canceled context
// and the request fails with context.DeadlineExceeded in its error chain.
// Placed after WithRetry it bounds all attempts together.
func WithTimeout(duration time.Duration) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewTimeout(TimeoutID, call, duration)
	}
}

// WithCircuitBreaker counts consecutive adapter-call failures. After failures
// of them the circuit opens and requests fail fast without calling the
// adapter until recovery has elapsed. Validation repairs are not failures.
func WithCircuitBreaker(failures int, recovery time.Duration) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewCircuitBreaker(CircuitBreakerID, call, failures, recovery)
	}
}

// WithRateLimit admits at most rps adapter calls per second with the given
// burst. Requests over the limit wait for a token by default; the prepare
// stages are never limited.
func WithRateLimit(rps float64, burst int) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewRateLimiter(RateLimitID, rps, burst, call)
	}
}

// WithErrorHandler passes each adapter-call failure to handler for side
// effects such as alerting. The failure is still returned to the caller.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*CompileRequest]]) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewHandle(ErrorHandlerID, call, handler)
	}
}

// WithFallbackAdapter calls fallback when the routed adapter fails. The
// route recorded on the request is replaced by the fallback's.
func WithFallbackAdapter(fallback Adapter) Option {
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.NewFallback(FallbackAdapterID, call, newFallbackTerminal(fallback))
	}
}

// WithDebug writes the compiled prompt and the raw reply to w, or to stderr
// when w is nil.
func WithDebug(w io.Writer) Option {
	if w == nil {
		w = os.Stderr
	}
	return func(call pipz.Chainable[*CompileRequest]) pipz.Chainable[*CompileRequest] {
		return pipz.Apply(DebugID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
			fmt.Fprintf(w, "\n=== DEBUG: System ===\n%s\n=== DEBUG: User ===\n%s\n=====================\n",
				req.Compiled.System, req.Compiled.User)

			processed, err := call.Process(ctx, req)
			if err != nil {
				fmt.Fprintf(w, "\n=== DEBUG: Error ===\n%v\n====================\n", err)
				return processed, err
			}

			fmt.Fprintf(w, "\n=== DEBUG: Raw Reply (%s) ===\n%s\n===========================\n",
				processed.Route.AdapterName, processed.RawOutput)
			return processed, nil
		})
	}
}
