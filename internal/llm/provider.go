package llm

import (
	"context"
)

// Decoding parameters shared by every provider. Identical requests must
// produce stable clinical text, so these are constants, not configuration.
const (
	Temperature = 0.0
	TopP        = 0.1

	defaultMaxTokens = 8000
	defaultTimeout   = 30 // seconds
)

// Provider defines the interface for hosted completion services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user exchange and returns the raw completion text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one role-tagged exchange with the model
type CompletionRequest struct {
	// System is the system-role message
	System string

	// User is the user-role message
	User string

	// JSON requests a reply body that is a single JSON object
	JSON bool

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens overrides the configured response bound
	MaxTokens int
}

// CompletionResponse contains the model's raw reply
type CompletionResponse struct {
	// Content is the completion text (a JSON document when JSON was requested)
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "groq", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Groq/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "groq",
		Timeout:   defaultTimeout,
		MaxTokens: defaultMaxTokens,
	}
}

func (c Config) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return defaultMaxTokens
}

func (c Config) model(req CompletionRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// jsonInstruction is appended to the system prompt for providers without a
// native JSON response mode
const jsonInstruction = "\n\nRespond with a single valid JSON object and nothing else. Do not wrap it in markdown."
