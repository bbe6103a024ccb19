package opetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/srdjan/ope"
)

func newCloudService(t *testing.T, adapter ope.Adapter, opts ...ope.Option) *ope.Service {
	t.Helper()
	overlays, err := ope.DefaultOverlays()
	if err != nil {
		t.Fatalf("failed to load overlays: %v", err)
	}
	return ope.NewService(ope.ServiceConfig{
		Overlays:     overlays,
		Capabilities: ope.StaticCapabilities{Cloud: true},
		Adapters:     ope.Adapters{Cloud: adapter},
	}, opts...)
}

func TestIntegration_RetryRecovers(t *testing.T) {
	adapter := NewFailingAdapter(2)
	svc := newCloudService(t, adapter, ope.WithRetry(3))

	resp, err := svc.Execute(context.Background(), ope.Request{RawPrompt: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if resp.Output.Answer != "recovered" {
		t.Errorf("unexpected answer %q", resp.Output.Answer)
	}
	if adapter.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", adapter.CallCount())
	}
}

func TestIntegration_NoRetryByDefault(t *testing.T) {
	adapter := NewFailingAdapter(1)
	svc := newCloudService(t, adapter)

	_, err := svc.Execute(context.Background(), ope.Request{RawPrompt: "What is the capital of France?"})
	var aerr *ope.AdapterError
	if !errors.As(err, &aerr) || aerr.Kind != ope.ErrKindNetwork {
		t.Fatalf("expected NETWORK_ERROR, got %v", err)
	}
	if adapter.CallCount() != 1 {
		t.Errorf("expected a single call, got %d", adapter.CallCount())
	}
}

func TestIntegration_TimeoutWithLatency(t *testing.T) {
	adapter := NewLatencyAdapter(NewSequencedAdapter(`{"answer":"late","citations":[]}`), time.Second)
	svc := newCloudService(t, adapter, ope.WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Execute(context.Background(), ope.Request{RawPrompt: "What is the capital of France?"})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("timeout did not cut the call short: %v", time.Since(start))
	}
}

func TestIntegration_RepairSequence(t *testing.T) {
	adapter := NewSequencedAdapter(
		NewResponseBuilder().WithAnswer("one").WithCitations().Build(),
		"plain text",
		NewResponseBuilder().WithAnswer("three").Build(),
	)
	svc := newCloudService(t, adapter)
	ctx := context.Background()

	wantRepaired := []bool{false, true, true}
	for i, want := range wantRepaired {
		resp, err := svc.Execute(ctx, ope.Request{RawPrompt: "What is the capital of France?"})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if resp.Meta.Validation.WasRepaired != want {
			t.Errorf("call %d: expected repaired=%v, got %v", i, want, resp.Meta.Validation.WasRepaired)
		}
		if resp.Output.Citations == nil {
			t.Errorf("call %d: citations must never be nil", i)
		}
	}
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	recorder := NewCallRecorder(NewSequencedAdapter(`{"answer":"ok","citations":[]}`))
	svc := newCloudService(t, recorder)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int64
	goroutines := 20
	callsPerGoroutine := 5

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				if _, err := svc.Execute(ctx, ope.Request{RawPrompt: "Explain recursion in Python"}); err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("expected no failures, got %d", failures.Load())
	}
	if recorder.CallCount() != goroutines*callsPerGoroutine {
		t.Errorf("expected %d calls, got %d", goroutines*callsPerGoroutine, recorder.CallCount())
	}
	for _, call := range recorder.Calls() {
		if call.Temperature != 0.2 {
			t.Fatalf("expected the code overlay temperature on every call, got %v", call.Temperature)
		}
	}
}
