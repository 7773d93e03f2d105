package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "localhost, .internal,ollama.lan")

	tests := []struct {
		url  string
		want string
	}{
		{"https://api.groq.com/openai/v1", "http://secure-proxy:3128"},
		{"http://example.com/", "http://proxy:3128"},
		{"http://localhost:11434/api/generate", ""},
		{"http://gpu.internal:11434/api/generate", ""},
		{"http://ollama.lan/api/tags", ""},
		{"http://box.ollama.lan/api/tags", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected direct connection, got %v", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "", "")
	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1", nil)
	got, err := proxy(req)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.String() != "http://proxy:3128" {
		t.Errorf("Expected http proxy for https traffic, got %v", got)
	}
}
