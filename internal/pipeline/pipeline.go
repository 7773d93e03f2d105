package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/categorize"
	"github.com/PACSamericana/poly/internal/gateway"
	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/synthesize"
)

const defaultSectionWorkers = 4

// Categorizer sorts a dictation into sections
type Categorizer interface {
	Categorize(ctx context.Context, dictation string) model.CategorizedFindings
}

// SectionSynthesizer produces the text of one section
type SectionSynthesizer interface {
	Synthesize(ctx context.Context, key model.SectionKey, findings []model.Finding, sex model.Sex) synthesize.Result
}

// Pipeline orchestrates one report run: categorize the dictation, then
// synthesize every catalog section and assemble the report in catalog order
type Pipeline struct {
	catalog     *catalog.Catalog
	categorizer Categorizer
	synthesizer SectionSynthesizer
	workers     int
	logger      *zap.Logger
	observer    Observer
	emitMu      sync.Mutex
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSectionWorkers bounds concurrent section synthesis; 1 runs sections
// sequentially
func WithSectionWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver receives progress events
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New creates a pipeline from its stages
func New(cat *catalog.Catalog, c Categorizer, s SectionSynthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:     cat,
		categorizer: c,
		synthesizer: s,
		workers:     defaultSectionWorkers,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPipeline wires the categorizer and synthesizer over one gateway using
// the run configuration
func NewPipeline(cfg *model.Config, gw gateway.Gateway, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := categorize.New(gw, cat,
		categorize.WithLogger(logger.Named("categorize")),
		categorize.WithMaxAttempts(cfg.Retry.MaxAttempts),
	)
	s := synthesize.New(gw, cat, synthesize.WithLogger(logger.Named("synthesize")))

	base := []Option{
		WithSectionWorkers(cfg.Concurrency.SectionWorkers),
		WithLogger(logger.Named("pipeline")),
	}
	return New(cat, c, s, append(base, opts...)...)
}

// Request is one report run
type Request struct {
	Dictation string
	Sex       model.Sex
	Study     *model.StudyInfo
}

// Generate produces a report for a dictation with unknown patient sex
func (p *Pipeline) Generate(ctx context.Context, dictation string) (*model.Report, error) {
	return p.GenerateReport(ctx, Request{Dictation: dictation})
}

// GenerateReport runs the full flow. Model failures never fail the run; only
// cancellation does, in which case no report is returned.
func (p *Pipeline) GenerateReport(ctx context.Context, req Request) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	sex := req.Sex
	if sex == model.SexUnknown && req.Study != nil {
		sex = req.Study.PatientSex
	}

	dictation := Normalize(req.Dictation)
	keys := p.catalog.Keys()

	p.emit(Event{Stage: StageCategorizing, Total: len(keys)})
	findings := p.categorizer.Categorize(ctx, dictation)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results, err := p.synthesizeAll(ctx, keys, findings, sex)
	if err != nil {
		return nil, err
	}

	report := model.NewReport(p.catalog.StudyType)
	report.Study = req.Study
	summary := make(map[synthesize.Outcome]int)
	for i, key := range keys {
		report.Sections[key] = results[i].Section
		summary[results[i].Outcome]++
	}

	elapsed := time.Since(start)
	p.emit(Event{Stage: StageComplete, Total: len(keys), Elapsed: elapsed})
	p.logger.Info("report generated",
		zap.Int("sections", len(keys)),
		zap.Int("findings", findings.Count()),
		zap.Int("merged", summary[synthesize.OutcomeMerged]),
		zap.Int("normal", summary[synthesize.OutcomeNormal]),
		zap.Int("fallback", summary[synthesize.OutcomeFallback]),
		zap.Int("flagged", summary[synthesize.OutcomeFlagged]),
		zap.Duration("elapsed", elapsed),
	)

	return report, nil
}

// synthesizeAll runs sections concurrently, bounded by the worker count.
// Each goroutine writes only its own slot.
func (p *Pipeline) synthesizeAll(ctx context.Context, keys []model.SectionKey, findings model.CategorizedFindings, sex model.Sex) ([]synthesize.Result, error) {
	results := make([]synthesize.Result, len(keys))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, key := range keys {
		if ctx.Err() != nil {
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int, key model.SectionKey) {
			defer wg.Done()
			defer func() { <-sem }()

			sectionStart := time.Now()
			res := p.synthesizer.Synthesize(ctx, key, findings[key], sex)
			results[idx] = res

			p.emit(Event{
				Stage:    StageSection,
				Section:  key,
				Index:    idx,
				Total:    len(keys),
				Findings: len(findings[key]),
				Outcome:  res.Outcome,
				Elapsed:  time.Since(sectionStart),
			})
		}(i, key)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
