// Package categorize sorts a free-text dictation into catalog sections with a
// single model exchange.
package categorize

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/gateway"
	"github.com/PACSamericana/poly/internal/llm"
	"github.com/PACSamericana/poly/internal/model"
)

// categorizeSleepFunc is the sleep function used between retries (injectable for tests)
var categorizeSleepFunc = time.Sleep

const defaultMaxAttempts = 2

// Categorizer turns a dictation into CategorizedFindings
type Categorizer struct {
	gateway     gateway.Gateway
	catalog     *catalog.Catalog
	logger      *zap.Logger
	maxAttempts int
}

// Option configures a Categorizer
type Option func(*Categorizer)

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Categorizer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxAttempts bounds gateway attempts for retryable failures; 1 disables retry
func WithMaxAttempts(n int) Option {
	return func(c *Categorizer) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// New creates a categorizer for the given catalog
func New(gw gateway.Gateway, cat *catalog.Catalog, opts ...Option) *Categorizer {
	c := &Categorizer{
		gateway:     gw,
		catalog:     cat,
		logger:      zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize assigns every explicitly stated finding to one catalog section.
// It never fails: gateway errors and unusable replies yield an empty result,
// which makes every section fall back to its normal template.
func (c *Categorizer) Categorize(ctx context.Context, dictation string) model.CategorizedFindings {
	empty := model.CategorizedFindings{}
	if dictation == "" {
		return empty
	}

	system := SystemPrompt()
	user := BuildPrompt(dictation, c.catalog.Keys())

	reply, err := c.completeWithRetry(ctx, system, user)
	if err != nil {
		c.logger.Warn("categorization failed, using normal templates",
			zap.Error(err),
			zap.String("raw", truncateForLog(rawOf(err), 500)),
		)
		return empty
	}

	findings, err := decode(reply.Object, c.catalog)
	if err != nil {
		c.logger.Warn("categorization reply has unexpected shape, using normal templates",
			zap.Error(err),
			zap.String("raw", truncateForLog(reply.Raw, 500)),
		)
		return empty
	}

	cleaned := c.sanitize(findings, dictation)
	c.logger.Debug("categorized dictation",
		zap.Int("sections", len(cleaned)),
		zap.Int("findings", cleaned.Count()),
		zap.Bool("cached", reply.Cached),
	)
	return cleaned
}

// completeWithRetry retries transient gateway failures with exponential backoff
func (c *Categorizer) completeWithRetry(ctx context.Context, system, user string) (*gateway.Reply, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		reply, err := c.gateway.Complete(ctx, system, user, true)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !llm.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < c.maxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying categorization", zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))
			categorizeSleepFunc(backoff)
		}
	}
	return nil, lastErr
}

func rawOf(err error) string {
	var gerr *llm.GatewayError
	if errors.As(err, &gerr) {
		return gerr.Raw
	}
	return ""
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
