package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-sonnet-20241022"
	anthropicPingModel    = "claude-3-5-haiku-20241022"
)

// AnthropicProvider talks to the Messages API
type AnthropicProvider struct {
	rest   *restClient
	config Config
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []messageTurn `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      bool          `json:"stream"`
}

type messageTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesReply struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *messagesReply) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// anthropicDetail reads {"error":{"type":..,"message":..}} bodies
func anthropicDetail(raw []byte) error {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || body.Error.Message == "" {
		return nil
	}
	return fmt.Errorf("%s - %s", body.Error.Type, body.Error.Message)
}

// NewAnthropicProvider requires an API key
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Provider: "anthropic", Reason: "API key is required"}
	}

	rest := newRestClient("anthropic", anthropicBaseURL, defaultTimeout*time.Second, config)
	rest.header.Set("x-api-key", config.APIKey)
	rest.header.Set("anthropic-version", anthropicVersion)

	return &AnthropicProvider{rest: rest, config: config}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a minimal message; the API has no free ping endpoint
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	ping := messagesRequest{
		Model:     p.config.model(CompletionRequest{}, anthropicPingModel),
		MaxTokens: 10,
		Messages:  []messageTurn{{Role: "user", Content: "Hi"}},
	}
	var reply messagesReply
	return p.rest.post(ctx, "/v1/messages", ping, &reply, anthropicDetail) == nil
}

// Complete sends the exchange to the Messages API. There is no JSON response
// mode, so JSON requests carry an explicit instruction in the system turn.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	system := req.System
	if req.JSON {
		system += jsonInstruction
	}
	temperature, topP := Temperature, TopP

	var reply messagesReply
	err := p.rest.post(ctx, "/v1/messages", messagesRequest{
		Model:       p.config.model(req, anthropicDefaultModel),
		MaxTokens:   p.config.maxTokens(req),
		System:      system,
		Messages:    []messageTurn{{Role: "user", Content: req.User}},
		Temperature: &temperature,
		TopP:        &topP,
	}, &reply, anthropicDetail)
	if err != nil {
		return nil, err
	}

	content := reply.text()
	if content == "" {
		return nil, emptyReply("anthropic", "no text content in response")
	}
	return &CompletionResponse{
		Content:    content,
		Model:      reply.Model,
		TokensUsed: reply.Usage.InputTokens + reply.Usage.OutputTokens,
	}, nil
}
