// Package synthesize merges a section's findings into its normal template.
package synthesize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/gateway"
	"github.com/PACSamericana/poly/internal/llm"
	"github.com/PACSamericana/poly/internal/model"
)

// fallbackText is used for a key the catalog does not know
const fallbackText = "Normal examination."

// Outcome records how a section's text was produced
type Outcome string

const (
	OutcomeNormal   Outcome = "normal"   // no findings, template used verbatim
	OutcomeMerged   Outcome = "merged"   // model merged the findings
	OutcomeFallback Outcome = "fallback" // merge failed, template used
	OutcomeFlagged  Outcome = "flagged"  // merged text kept, consistency check still objects
)

// Result is the synthesized text of one section
type Result struct {
	Key     model.SectionKey
	Section model.SectionResult
	Outcome Outcome
	Err     error // cause of a fallback or flag
}

// Synthesizer produces section text from findings
type Synthesizer struct {
	gateway gateway.Gateway
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a synthesizer for the given catalog
func New(gw gateway.Gateway, cat *catalog.Catalog, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		gateway: gw,
		catalog: cat,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the section text. Without findings the normal template
// is returned verbatim and the model is not called. A gateway or reply
// failure falls back to the normal template. Merged text that still fails
// the consistency check after one corrective retry is kept and flagged,
// since the template would drop the findings. Synthesize never returns an
// error.
func (s *Synthesizer) Synthesize(ctx context.Context, key model.SectionKey, findings []model.Finding, sex model.Sex) Result {
	section, ok := s.catalog.Lookup(key)
	if !ok {
		err := fmt.Errorf("unknown section %s", key)
		s.logger.Warn("synthesis skipped", zap.String("section", string(key)), zap.Error(err))
		return fallback(key, fallbackText, err)
	}

	normal := section.NormalText(sex)
	if len(findings) == 0 {
		return Result{Key: key, Section: model.SectionResult{Text: normal}, Outcome: OutcomeNormal}
	}

	system := SystemPrompt()
	var violation error

	// One retry, only for a consistency violation
	for attempt := 0; attempt < 2; attempt++ {
		user := BuildPrompt(section, normal, findings, violation)

		reply, err := s.gateway.Complete(ctx, system, user, true)
		if err != nil {
			s.logFallback(key, err, rawOf(err))
			return fallback(key, normal, err)
		}

		text, err := extractText(key, reply)
		if err != nil {
			s.logFallback(key, err, reply.Raw)
			return fallback(key, normal, err)
		}

		text = GuardReferences(text, findings)

		if err := CheckConsistency(key, text, findings); err != nil {
			if attempt == 0 {
				s.logger.Info("merged text contradicts findings, retrying",
					zap.String("section", string(key)),
					zap.Error(err),
				)
				violation = err
				continue
			}
			s.logger.Warn("keeping merged text that failed the consistency check",
				zap.String("section", string(key)),
				zap.Error(err),
			)
			return Result{Key: key, Section: model.SectionResult{Text: text}, Outcome: OutcomeFlagged, Err: err}
		}

		return Result{Key: key, Section: model.SectionResult{Text: text}, Outcome: OutcomeMerged}
	}

	// unreachable: the second attempt always returns
	return fallback(key, normal, violation)
}

func (s *Synthesizer) logFallback(key model.SectionKey, err error, raw string) {
	s.logger.Warn("section synthesis failed, falling back to normal template",
		zap.String("section", string(key)),
		zap.Error(err),
		zap.String("raw", truncateForLog(raw, 500)),
	)
}

func fallback(key model.SectionKey, text string, err error) Result {
	return Result{Key: key, Section: model.SectionResult{Text: text}, Outcome: OutcomeFallback, Err: err}
}

// extractText reads {"<key>": {"text": "..."}} from the reply
func extractText(key model.SectionKey, reply *gateway.Reply) (string, error) {
	value, ok := reply.Object[string(key)]
	if !ok {
		return "", &SectionMismatchError{Section: key, Reason: "section key missing", Raw: reply.Raw}
	}

	var body struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(value, &body); err != nil {
		return "", &SectionMismatchError{Section: key, Reason: "section value is not an object", Raw: reply.Raw}
	}
	if body.Text == nil {
		return "", &SectionMismatchError{Section: key, Reason: "text field missing", Raw: reply.Raw}
	}

	text := strings.TrimSpace(*body.Text)
	if text == "" {
		return "", &SectionMismatchError{Section: key, Reason: "text is empty", Raw: reply.Raw}
	}
	return text, nil
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
