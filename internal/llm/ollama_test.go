package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Complete_Success(t *testing.T) {
	var body generateRequest
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		_ = json.Unmarshal([]byte(buf.String()), &body)
		_ = json.Unmarshal([]byte(buf.String()), &raw)

		_ = json.NewEncoder(w).Encode(generateReply{
			Model:           "llama3.1:8b",
			Response:        ` {"bones": {"text": "Chronic L1 endplate fracture."}} `,
			PromptEvalCount: 40,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		System: "system prompt",
		User:   "user prompt",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Content != `{"bones": {"text": "Chronic L1 endplate fracture."}}` {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TokensUsed != 60 {
		t.Errorf("Expected 60 tokens, got %d", resp.TokensUsed)
	}
	if body.Format != "json" {
		t.Errorf("Expected format json, got %q", body.Format)
	}
	if body.Prompt != "user prompt" {
		t.Errorf("Expected prompt to be the user message, got %q", body.Prompt)
	}
	if body.Stream {
		t.Error("Expected stream=false")
	}

	var options map[string]any
	_ = json.Unmarshal(raw["options"], &options)
	if temp, ok := options["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("Expected explicit temperature 0, got %v", options["temperature"])
	}
	if options["top_p"] != 0.1 {
		t.Errorf("Expected top_p 0.1, got %v", options["top_p"])
	}
	if options["num_predict"] != float64(8000) {
		t.Errorf("Expected num_predict 8000, got %v", options["num_predict"])
	}
}

func TestOllamaProvider_Complete_PlainText(t *testing.T) {
	var body generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(generateReply{Response: "ok"})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mistral"})
	if _, err := provider.Complete(context.Background(), CompletionRequest{System: "s", User: "u"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if body.Format != "" {
		t.Errorf("Expected no format for plain requests, got %q", body.Format)
	}
	if body.System != "s" {
		t.Errorf("Expected system prompt unchanged, got %q", body.System)
	}
}

func TestOllamaProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		op        string
		retryable bool
	}{
		{"model not found", http.StatusNotFound, `{"error": "model 'llama3.1:8b' not found"}`, "status", false},
		{"server error", http.StatusInternalServerError, `boom`, "status", true},
		{"malformed", http.StatusOK, `{not json`, "parse", false},
		{"empty response", http.StatusOK, `{"response": "   ", "done": true}`, "empty", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
			_, err := provider.Complete(context.Background(), CompletionRequest{User: "x"})

			var gerr *GatewayError
			if !errors.As(err, &gerr) {
				t.Fatalf("Expected *GatewayError, got %T: %v", err, err)
			}
			if gerr.Op != tt.op {
				t.Errorf("Expected op %q, got %q", tt.op, gerr.Op)
			}
			if gerr.Retryable != tt.retryable {
				t.Errorf("Expected retryable=%v, got %v", tt.retryable, gerr.Retryable)
			}
		})
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	_, err := NewOllamaProvider(Config{})
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ConfigurationError, got %T", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	provider, _ = NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1", Model: "llama3.1:8b"})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false when daemon is down")
	}
}
