package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	ollamaBaseURL = "http://localhost:11434"
	// first call on a cold daemon loads the model
	ollamaTimeout = 60 * time.Second
)

// OllamaProvider runs completions on a local Ollama daemon
type OllamaProvider struct {
	rest   *restClient
	config Config
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Format  string          `json:"format,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// Pointers so that a zero temperature is still sent
type generateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type generateReply struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func ollamaDetail(raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		return nil
	}
	return errors.New(body.Error)
}

// NewOllamaProvider requires an explicit model; the daemon has no default
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, &ConfigurationError{Provider: "ollama", Reason: "model must be specified (e.g., llama3.1:8b)"}
	}
	return &OllamaProvider{
		rest:   newRestClient("ollama", ollamaBaseURL, ollamaTimeout, config),
		config: config,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the daemon lists its models
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.rest.get(ctx, "/api/tags") == nil
}

// Complete runs one non-streaming generation against /api/generate
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	gen := generateRequest{
		Model:  p.config.model(req, ""),
		Prompt: req.User,
		System: req.System,
	}
	if req.JSON {
		gen.System += jsonInstruction
		gen.Format = "json"
	}
	temperature, topP := Temperature, TopP
	gen.Options = generateOptions{Temperature: &temperature, TopP: &topP, NumPredict: p.config.maxTokens(req)}

	var reply generateReply
	if err := p.rest.post(ctx, "/api/generate", gen, &reply, ollamaDetail); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(reply.Response)
	if content == "" {
		return nil, emptyReply("ollama", "empty response")
	}
	return &CompletionResponse{
		Content:    content,
		Model:      reply.Model,
		TokensUsed: reply.PromptEvalCount + reply.EvalCount,
	}, nil
}
