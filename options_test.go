package ope

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/pipz"
)

type slowAdapter struct {
	delay time.Duration
}

func (*slowAdapter) Name() string  { return "slow" }
func (*slowAdapter) Model() string { return "slow-model" }

func (s *slowAdapter) Call(ctx context.Context, _, _ string, _ int, _ float64) (string, error) {
	select {
	case <-time.After(s.delay):
		return `{"answer":"late","citations":[]}`, nil
	case <-ctx.Done():
		return "", &AdapterError{Kind: ErrKindNetwork, Adapter: "slow", Err: ctx.Err()}
	}
}

func flakyAdapter(failures int32, calls *atomic.Int32) Adapter {
	return NewMockAdapterWithCallback(func(_, _ string, _ int, _ float64) (string, error) {
		if n := calls.Add(1); n <= failures {
			return "", &AdapterError{Kind: ErrKindNetwork, Adapter: "flaky", Err: errors.New("temporary error")}
		}
		return `{"answer":"recovered","citations":[]}`, nil
	})
}

func cloudService(t *testing.T, cloud Adapter, opts ...Option) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		Capabilities: StaticCapabilities{Cloud: true},
		Adapters:     Adapters{Cloud: cloud},
	}, opts...)
}

func TestWithTimeout(t *testing.T) {
	svc := cloudService(t, &slowAdapter{delay: time.Second}, WithTimeout(10*time.Millisecond))

	_, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded error, got %v", err)
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		var calls atomic.Int32
		svc := cloudService(t, flakyAdapter(2, &calls), WithRetry(3))

		resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if resp.Output.Answer != "recovered" {
			t.Errorf("unexpected answer %q", resp.Output.Answer)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}
	})

	t.Run("no retry by default", func(t *testing.T) {
		var calls atomic.Int32
		svc := cloudService(t, flakyAdapter(1, &calls))

		if _, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"}); err == nil {
			t.Fatal("expected the first failure to surface")
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly 1 call, got %d", calls.Load())
		}
	})
}

func TestWithBackoff(t *testing.T) {
	var calls atomic.Int32
	svc := cloudService(t, flakyAdapter(1, &calls), WithBackoff(3, time.Millisecond))

	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("expected success after backoff, got %v", err)
	}
	if resp.Output.Answer != "recovered" {
		t.Errorf("unexpected answer %q", resp.Output.Answer)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestWithFallbackAdapter(t *testing.T) {
	var calls atomic.Int32
	fallback := NewMockAdapterWithResponse(`{"answer":"from fallback","citations":["https://fallback.example/"]}`)
	svc := cloudService(t, flakyAdapter(100, &calls), WithFallbackAdapter(fallback))

	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("expected the fallback to answer, got %v", err)
	}
	if resp.Output.Answer != "from fallback" {
		t.Errorf("unexpected answer %q", resp.Output.Answer)
	}
	if resp.Meta.Adapter != "mock-fixed" {
		t.Errorf("expected the fallback route in meta, got %q", resp.Meta.Adapter)
	}
}

func TestWithRateLimit(t *testing.T) {
	svc := cloudService(t, NewMockAdapterWithResponse(`{"answer":"ok","citations":[]}`), WithRateLimit(1000, 10))
	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"}); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
}

func TestWithCircuitBreaker(t *testing.T) {
	svc := cloudService(t, NewMockAdapterWithResponse(`{"answer":"ok","citations":[]}`), WithCircuitBreaker(3, time.Second))
	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Output.Answer != "ok" {
		t.Errorf("unexpected answer %q", resp.Output.Answer)
	}
}

func TestWithErrorHandler(t *testing.T) {
	var handled atomic.Int32
	handler := pipz.Apply(pipz.NewIdentity("record", "Records adapter failures"), func(_ context.Context, e *pipz.Error[*CompileRequest]) (*pipz.Error[*CompileRequest], error) {
		handled.Add(1)
		return e, nil
	})

	var calls atomic.Int32
	svc := cloudService(t, flakyAdapter(100, &calls), WithErrorHandler(handler))
	if _, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"}); err == nil {
		t.Fatal("expected the failure to propagate")
	}
	if handled.Load() != 1 {
		t.Errorf("expected the handler to run once, got %d", handled.Load())
	}
}

func TestWithDebug(t *testing.T) {
	var buf bytes.Buffer
	svc := cloudService(t, NewMockAdapterWithResponse(`{"answer":"dbg","citations":[]}`), WithDebug(&buf))
	if _, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"=== DEBUG: System ===", "ROLE: precise expert", "TASK: What is the capital of France?", `{"answer":"dbg","citations":[]}`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in debug output:\n%s", want, out)
		}
	}
}

func TestOptionComposition(t *testing.T) {
	var calls atomic.Int32
	svc := cloudService(t, flakyAdapter(1, &calls),
		WithRetry(2),
		WithTimeout(time.Second),
		WithCircuitBreaker(5, time.Second),
	)
	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Output.Answer != "recovered" {
		t.Errorf("unexpected answer %q", resp.Output.Answer)
	}
}

func TestWithCircuitBreaker_RepairsAreNotFailures(t *testing.T) {
	var calls atomic.Int32
	plain := NewMockAdapterWithCallback(func(_, _ string, _ int, _ float64) (string, error) {
		calls.Add(1)
		return "plain text, not JSON", nil
	})
	svc := cloudService(t, plain, WithCircuitBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"})
		if err != nil {
			t.Fatalf("request %d: repaired replies must not open the circuit: %v", i, err)
		}
		if !resp.Meta.Validation.WasRepaired {
			t.Errorf("request %d: expected a repaired reply", i)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected every request to reach the adapter, got %d calls", calls.Load())
	}
}
