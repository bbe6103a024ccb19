package ope

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
)

type hookRecord struct {
	signal    capitan.Signal
	requestID string
	adapter   string
	model     string
	context   string
	errorKind string
}

// recordHooks captures every event emitted while the test runs. Fields are
// copied inside the callback because events are delivered asynchronously.
func recordHooks(t *testing.T) <-chan hookRecord {
	t.Helper()
	records := make(chan hookRecord, 256)
	observer := capitan.Observe(func(_ context.Context, e *capitan.Event) {
		r := hookRecord{signal: e.Signal()}
		r.requestID, _ = RequestIDKey.From(e)
		r.adapter, _ = AdapterKey.From(e)
		r.model, _ = ModelKey.From(e)
		r.context, _ = ContextKey.From(e)
		r.errorKind, _ = ErrorKindKey.From(e)
		select {
		case records <- r:
		default:
		}
	})
	t.Cleanup(func() { observer.Close() })
	return records
}

// waitFor reads records until match returns true or the timeout expires.
func waitFor(t *testing.T, records <-chan hookRecord, match func(hookRecord) bool) hookRecord {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r := <-records:
			if match(r) {
				return r
			}
		case <-timeout:
			t.Fatal("timeout waiting for hook")
			return hookRecord{}
		}
	}
}

func TestRequestHooks(t *testing.T) {
	records := recordHooks(t)

	svc := newTestService(t, StaticCapabilities{Mock: true}, Adapters{})
	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "What is Kubernetes?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := resp.Meta.RequestID

	seen := map[capitan.Signal]hookRecord{}
	want := []capitan.Signal{
		RequestStarted,
		EnhancementApplied,
		ContextAutoApplied,
		RouteSelected,
		AdapterCallStarted,
		AdapterCallCompleted,
		RequestCompleted,
	}
	for len(seen) < len(want) {
		r := waitFor(t, records, func(r hookRecord) bool { return r.requestID == id })
		seen[r.signal] = r
	}
	for _, sig := range want {
		if _, ok := seen[sig]; !ok {
			t.Errorf("expected %s to be emitted", sig.Name())
		}
	}

	if r := seen[RouteSelected]; r.adapter != MockAdapterName || r.model != MockModelID {
		t.Errorf("route hook carried %s/%s", r.adapter, r.model)
	}
	if r := seen[ContextAutoApplied]; r.context != "code" {
		t.Errorf("expected auto-applied context code, got %q", r.context)
	}
}

func TestResponseRepairedHook(t *testing.T) {
	records := recordHooks(t)

	svc := newTestService(t, StaticCapabilities{}, Adapters{})
	resp, err := svc.Execute(context.Background(), Request{RawPrompt: "Tell me a fact about owls please"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := waitFor(t, records, func(r hookRecord) bool {
		return r.requestID == resp.Meta.RequestID && r.signal == ResponseRepaired
	})
	if r.errorKind != string(InvalidJSON) {
		t.Errorf("expected error kind %s, got %q", InvalidJSON, r.errorKind)
	}
	if r.adapter != EchoAdapterName {
		t.Errorf("expected adapter %s, got %q", EchoAdapterName, r.adapter)
	}
}

func TestAdapterCallFailedHook(t *testing.T) {
	records := recordHooks(t)

	failing := NewMockAdapterWithCallback(func(_, _ string, _ int, _ float64) (string, error) {
		return "", &AdapterError{Kind: ErrKindConfigMissing, Adapter: "cloud"}
	})
	svc := newTestService(t, StaticCapabilities{Cloud: true}, Adapters{Cloud: failing})
	if _, err := svc.Execute(context.Background(), Request{RawPrompt: "What is the capital of France?"}); err == nil {
		t.Fatal("expected an error")
	}

	r := waitFor(t, records, func(r hookRecord) bool { return r.signal == AdapterCallFailed && r.adapter == "mock-callback" })
	if r.errorKind != string(ErrKindConfigMissing) {
		t.Errorf("expected %s, got %q", ErrKindConfigMissing, r.errorKind)
	}
	waitFor(t, records, func(r hookRecord) bool {
		return r.signal == RequestFailed && r.requestID != "" && r.errorKind == string(ErrKindConfigMissing)
	})
}
