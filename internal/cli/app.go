package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/cache"
	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/gateway"
	"github.com/PACSamericana/poly/internal/llm"
	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/worker"
)

// app holds the components shared by generate, batch and serve
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	catalog  *catalog.Catalog
	cache    cache.Cache
	gateway  *gateway.Client
	limiter  *worker.Limiter
	pipeline *pipeline.Pipeline
}

// newApp loads configuration and wires the report pipeline. A missing
// credential or unknown provider fails here, before any run starts.
func newApp(opts ...pipeline.Option) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, err
	}

	completions := cache.New(cfg.Cache)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	gw := gateway.New(provider,
		gateway.WithCache(completions, cfg.Cache.MemoryTTL),
		gateway.WithLimiter(limiter),
		gateway.WithTimeout(time.Duration(cfg.LLM.Timeout)*time.Second),
		gateway.WithModel(cfg.LLM.Model),
		gateway.WithLogger(logger.Named("gateway")),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		catalog:  cat,
		cache:    completions,
		gateway:  gw,
		limiter:  limiter,
		pipeline: pipeline.NewPipeline(cfg, gw, cat, logger, opts...),
	}, nil
}

// progressPrinter renders pipeline events as operator progress lines
func progressPrinter(w io.Writer, detailed bool) pipeline.Observer {
	return func(e pipeline.Event) {
		switch e.Stage {
		case pipeline.StageCategorizing:
			fmt.Fprintf(w, "⚙️  Categorizing findings across %d sections...\n", e.Total)
		case pipeline.StageSection:
			if !detailed && e.Findings == 0 {
				return
			}
			fmt.Fprintf(w, "✓ %-28s %-8s (%d findings, %v)\n", e.Section, e.Outcome, e.Findings, e.Elapsed.Round(time.Millisecond))
		case pipeline.StageComplete:
			fmt.Fprintf(w, "✓ Report complete in %v\n", e.Elapsed.Round(time.Millisecond))
		}
	}
}

// printUsage reports cache and rate-limit activity for the run
func (a *app) printUsage(w io.Writer) {
	if r, ok := a.cache.(cache.StatsReporter); ok {
		s := r.Stats()
		fmt.Fprintf(w, "✓ Cache: %d hits, %d misses\n", s.Hits, s.Misses)
	}
	if held := a.limiter.Waited(a.gateway.Provider()); held > 0 {
		fmt.Fprintf(w, "✓ Rate limited for %v\n", held.Round(time.Millisecond))
	}
}
