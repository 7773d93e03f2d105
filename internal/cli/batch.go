package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/store"
	"github.com/PACSamericana/poly/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchMD      bool
	batchPDF     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate reports for many dictations from a file",
	Long: `Batch generates one report per dictation line:
- Read dictations from the input file (one per line, # for comments)
- Skip blank and duplicate lines
- Generate reports in parallel with a configurable worker count
- Save each report to the configured store

Example:
  poly batch dictations.txt
  poly batch dictations.txt --concurrency 4 --out-dir ./reports --md --pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of reports generated at once (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&outputDir, "out-dir", "", "directory for saved reports (default: output.dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().StringVar(&patientSex, "sex", "", "patient sex applied to every dictation (F, M)")
	batchCmd.Flags().BoolVar(&batchMD, "md", false, "also write a Markdown file next to each saved report")
	batchCmd.Flags().BoolVar(&batchPDF, "pdf", false, "also write a PDF next to each saved report (font: output.pdf_font)")
}

// sexGenerator applies one patient sex to every dictation of a batch
type sexGenerator struct {
	pipeline *pipeline.Pipeline
	sex      model.Sex
}

func (g sexGenerator) Generate(ctx context.Context, dictation string) (*model.Report, error) {
	return g.pipeline.GenerateReport(ctx, pipeline.Request{Dictation: dictation, Sex: g.sex})
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.BatchWorkers
	}
	dir := outputDir
	if dir == "" {
		dir = a.cfg.Output.Dir
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Poly Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", dir)
	fmt.Fprintf(stderr, "  Model:        %s/%s\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	st, err := store.Open(ctx, a.cfg.Store, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	var font string
	if batchPDF {
		if font, err = pipeline.FindFont(a.cfg.Output.PDFFont); err != nil {
			return err
		}
	}

	processor := worker.NewBatchProcessor(sexGenerator{pipeline: a.pipeline, sex: model.ParseSex(patientSex)}, workers)

	fmt.Fprintf(stderr, "⚙️  Generating reports with %d workers...\n\n", workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(a.catalog)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		label := fmt.Sprintf("#%d %s", result.Index+1, preview(result.Dictation, 40))
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: %v\n", label, result.Error)
			continue
		}

		id, err := st.Save(ctx, result.Report)
		if err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: save failed: %v\n", label, err)
			continue
		}

		if fs, ok := st.(*store.FileStore); ok {
			base := filepath.Join(fs.Dir(), id)
			if batchMD {
				if err := renderer.RenderMarkdown(result.Report, base+".md"); err != nil {
					fmt.Fprintf(stderr, "✗ %s: failed to write Markdown: %v\n", label, err)
				}
			}
			if batchPDF {
				if err := renderer.RenderPDF(result.Report, base+".pdf", font); err != nil {
					fmt.Fprintf(stderr, "✗ %s: failed to write PDF: %v\n", label, err)
				}
			}
		}

		successCount++
		fmt.Fprintf(stderr, "✓ %s → %s (%v)\n", label, id, result.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d dictations\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n", dir)
	fmt.Fprintf(stderr, "\n")
	a.printUsage(stderr)

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d dictations failed", failureCount)
	}
	return nil
}

// preview shortens a dictation for progress lines
func preview(s string, max int) string {
	s = pipeline.Normalize(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
