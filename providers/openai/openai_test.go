package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/srdjan/ope"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "llama3.1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestAdapterCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Bearer token, got %s", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "llama3.1" {
			t.Errorf("Expected model llama3.1, got %s", req.Model)
		}
		if req.Temperature != 0.2 {
			t.Errorf("Expected temperature 0.2, got %f", req.Temperature)
		}
		if req.MaxTokens != 1200 {
			t.Errorf("Expected max_tokens 1200, got %d", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if req.Messages[0].Content != "system text" || req.Messages[1].Content != "user text" {
			t.Errorf("unexpected message content: %+v", req.Messages)
		}
		if req.ResponseFormat != nil {
			t.Errorf("response_format should be omitted, got %+v", req.ResponseFormat)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion(`{"answer":"hi","citations":[]}`))
	}))
	defer server.Close()

	adapter := New(Config{
		APIKey:  "test-key",
		Model:   "llama3.1",
		BaseURL: server.URL + "/v1",
	})

	reply, err := adapter.Call(context.Background(), "system text", "user text", 1200, 0.2)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply != `{"answer":"hi","citations":[]}` {
		t.Errorf("unexpected reply %q", reply)
	}
	if adapter.Name() != "local-http" {
		t.Errorf("Expected name local-http, got %s", adapter.Name())
	}
	if adapter.Model() != "llama3.1" {
		t.Errorf("Expected model llama3.1, got %s", adapter.Model())
	}
}

func TestAdapterJSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("Expected json_object response format, got %+v", req.ResponseFormat)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion(`{"answer":"ok","citations":[]}`))
	}))
	defer server.Close()

	adapter := New(Config{Model: "llama3.1", BaseURL: server.URL, JSONMode: true})
	if _, err := adapter.Call(context.Background(), "s", "u", 100, 1); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
}

func TestAdapterErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		kind   ope.AdapterErrorKind
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   map[string]any{"error": map[string]any{"message": "bad key", "type": "auth"}},
			kind:   ope.ErrKindConfigMissing,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   map[string]any{"error": map[string]any{"message": "boom", "type": "server"}},
			kind:   ope.ErrKindNetwork,
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   map[string]any{"id": "x", "object": "chat.completion", "model": "m", "choices": []any{}},
			kind:   ope.ErrKindInvalidResponse,
		},
		{
			name:   "empty content",
			status: http.StatusOK,
			body:   completion(""),
			kind:   ope.ErrKindInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			adapter := New(Config{Model: "m", BaseURL: server.URL})
			_, err := adapter.Call(context.Background(), "s", "u", 10, 0.5)

			var aerr *ope.AdapterError
			if !errors.As(err, &aerr) {
				t.Fatalf("expected *ope.AdapterError, got %v", err)
			}
			if aerr.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, aerr.Kind)
			}
			if tt.status != http.StatusOK && aerr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, aerr.StatusCode)
			}
			if aerr.Adapter != Name {
				t.Errorf("Expected adapter %s, got %s", Name, aerr.Adapter)
			}
		})
	}
}

func TestAdapterConfigMissing(t *testing.T) {
	tests := []Config{
		{Model: "llama3.1"},
		{BaseURL: "http://localhost:11434/v1"},
	}
	for _, cfg := range tests {
		_, err := New(cfg).Call(context.Background(), "s", "u", 10, 0.5)
		var aerr *ope.AdapterError
		if !errors.As(err, &aerr) || aerr.Kind != ope.ErrKindConfigMissing {
			t.Errorf("config %+v: expected CONFIG_MISSING, got %v", cfg, err)
		}
	}
}

func TestAdapterUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Config{Model: "m", BaseURL: url}).Call(context.Background(), "s", "u", 10, 0.5)
	var aerr *ope.AdapterError
	if !errors.As(err, &aerr) || aerr.Kind != ope.ErrKindNetwork {
		t.Errorf("expected NETWORK_ERROR, got %v", err)
	}
}
