package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PACSamericana/poly/internal/model"
)

// maxDictationLine bounds one input line; dictations run longer than the
// bufio default of 64 KiB
const maxDictationLine = 1 << 20

// Generator produces one report from one dictation
type Generator interface {
	Generate(ctx context.Context, dictation string) (*model.Report, error)
}

// ReportJob generates the report for one batch line
type ReportJob struct {
	Index     int
	Dictation string
	Generator Generator
}

// Execute executes the report job
func (j *ReportJob) Execute(ctx context.Context) Result {
	start := time.Now()
	result := &ReportResult{Index: j.Index, Dictation: j.Dictation}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	report, err := j.Generator.Generate(ctx, j.Dictation)
	result.Report = report
	result.Error = err
	result.Duration = time.Since(start)
	return result
}

// ReportResult is the outcome of one batch line
type ReportResult struct {
	Index     int
	Dictation string
	Report    *model.Report
	Error     error
	Duration  time.Duration
}

// GetError returns the error from the report result
func (r *ReportResult) GetError() error {
	return r.Error
}

// BatchProcessor generates reports for many dictations concurrently
type BatchProcessor struct {
	generator   Generator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(generator Generator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		generator:   generator,
		concurrency: concurrency,
	}
}

// Process generates one report per dictation. Results are returned in input
// order regardless of completion order.
func (b *BatchProcessor) Process(ctx context.Context, dictations []string) []*ReportResult {
	if len(dictations) == 0 {
		return []*ReportResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := make([]bool, len(dictations))
	for i, dictation := range dictations {
		submitted[i] = pool.Submit(&ReportJob{
			Index:     i,
			Dictation: dictation,
			Generator: b.generator,
		})
	}

	results := pool.Wait()

	reportResults := make([]*ReportResult, 0, len(dictations))
	for _, result := range results {
		reportResults = append(reportResults, result.(*ReportResult))
	}

	// Lines never queued because ctx ended first still get a result
	for i, ok := range submitted {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			reportResults = append(reportResults, &ReportResult{Index: i, Dictation: dictations[i], Error: err})
		}
	}

	sort.Slice(reportResults, func(i, j int) bool {
		return reportResults[i].Index < reportResults[j].Index
	})

	return reportResults
}

// ProcessFile reads dictations from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ReportResult, error) {
	dictations, err := ReadDictationsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read dictations: %w", err)
	}

	return b.Process(ctx, dictations), nil
}

// ReadDictationsFromFile reads dictations from a file, one per line.
// Blank lines, "#" comments and repeated dictations are skipped.
func ReadDictationsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var dictations []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDictationLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			dictations = append(dictations, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dictations, nil
}
