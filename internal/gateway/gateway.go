// Package gateway performs single request/response exchanges with the hosted
// completion service and parses the reply into a JSON object.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/cache"
	"github.com/PACSamericana/poly/internal/llm"
	"github.com/PACSamericana/poly/internal/worker"
)

const defaultTimeout = 30 * time.Second

// Reply is one model response. Object is set when JSON was requested.
type Reply struct {
	Raw    string
	Object map[string]json.RawMessage
	Cached bool
}

// Gateway is the single point of contact with the model service
type Gateway interface {
	Complete(ctx context.Context, system, user string, wantJSON bool) (*Reply, error)
}

// Client implements Gateway over an llm.Provider
type Client struct {
	provider llm.Provider
	model    string
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCache serves identical exchanges from c. Only parsed replies are stored.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithLimiter throttles outbound calls per provider
func WithLimiter(l *worker.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithTimeout bounds every call; zero keeps the 30s default
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithModel pins the model name sent with every request
func WithModel(model string) Option {
	return func(cl *Client) { cl.model = model }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a gateway client
func New(provider llm.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		timeout:  defaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the backing provider name
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Ping reports whether the provider answers
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if !c.provider.IsAvailable(ctx) {
		c.logger.Warn("model provider unavailable", zap.String("provider", c.provider.Name()))
		return false
	}
	return true
}

// Complete sends one exchange. Every failure is an *llm.GatewayError; the
// gateway never retries.
func (c *Client) Complete(ctx context.Context, system, user string, wantJSON bool) (*Reply, error) {
	name := c.provider.Name()
	key := cache.CompletionKey(name, c.model, system, user, strconv.FormatBool(wantJSON))

	if c.cache != nil {
		if data, found := c.cache.Get(key); found {
			if reply, err := buildReply(name, string(data), wantJSON); err == nil {
				reply.Cached = true
				c.logger.Debug("completion cache hit", zap.String("provider", name))
				return reply, nil
			}
			_ = c.cache.Delete(key)
		}
	}

	if c.limiter != nil {
		held, err := c.limiter.Wait(ctx, name)
		if err != nil {
			return nil, &llm.GatewayError{Provider: name, Op: "request", Err: err}
		}
		if held > time.Second {
			c.logger.Debug("rate limited", zap.String("provider", name), zap.Duration("held", held))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Complete(callCtx, llm.CompletionRequest{
		System: system,
		User:   user,
		JSON:   wantJSON,
		Model:  c.model,
	})
	if err != nil {
		err = asGatewayError(name, err)
		c.throttleOnQuota(name, err)
		return nil, err
	}

	c.logger.Debug("completion",
		zap.String("provider", name),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", time.Since(start)),
	)

	reply, err := buildReply(name, resp.Content, wantJSON)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(key, []byte(resp.Content), c.cacheTTL); err != nil {
			c.logger.Warn("completion cache write failed", zap.Error(err))
		}
	}

	return reply, nil
}

// throttleOnQuota slows the provider down after a 429
func (c *Client) throttleOnQuota(name string, err error) {
	var gerr *llm.GatewayError
	if c.limiter == nil || !errors.As(err, &gerr) || gerr.StatusCode != http.StatusTooManyRequests {
		return
	}
	rps := c.limiter.Throttle(name)
	c.logger.Warn("provider quota exceeded, slowing down", zap.String("provider", name), zap.Float64("requests_per_second", rps))
}

func buildReply(provider, content string, wantJSON bool) (*Reply, error) {
	reply := &Reply{Raw: content}
	if !wantJSON {
		return reply, nil
	}
	obj, err := ParseObject(content)
	if err != nil {
		return nil, &llm.GatewayError{Provider: provider, Op: "parse", Raw: content, Err: err}
	}
	reply.Object = obj
	return reply, nil
}

func asGatewayError(provider string, err error) error {
	var gerr *llm.GatewayError
	if errors.As(err, &gerr) {
		return err
	}
	return &llm.GatewayError{
		Provider:  provider,
		Op:        "request",
		Retryable: errors.Is(err, context.DeadlineExceeded),
		Err:       err,
	}
}
