package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/store"
	"github.com/PACSamericana/poly/internal/study"
)

var (
	dictationFile string
	patientSex    string
	dicomPath     string
	outJSON       string
	outMD         string
	outPDF        string
	outputDir     string
	timeout       time.Duration
	quiet         bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [dictation]",
	Short: "Generate a structured report from one dictation",
	Long: `Generate turns one dictation into a structured report:
- Assign each dictated finding to one anatomical section
- Merge findings into the section's normal template
- Keep normal templates verbatim for sections without findings
- Save the report and print it as Markdown

The dictation is read from the argument, from --file, or from stdin.

Example:
  poly generate "mild hepatic steatosis, chronic L1 endplate fracture"
  poly generate --file dictation.txt --sex F --md report.md
  poly generate --dicom IM000001 < dictation.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&dictationFile, "file", "f", "", "read the dictation from a file")
	generateCmd.Flags().StringVar(&patientSex, "sex", "", "patient sex for gender-specific templates (F, M)")
	generateCmd.Flags().StringVar(&dicomPath, "dicom", "", "DICOM file of the study (sex, accession and date are read from its header)")
	generateCmd.Flags().StringVar(&outJSON, "json", "", "also write the report JSON to this path")
	generateCmd.Flags().StringVar(&outMD, "md", "", "also write the Markdown report to this path")
	generateCmd.Flags().StringVar(&outPDF, "pdf", "", "also write a PDF report to this path (font: output.pdf_font)")
	generateCmd.Flags().StringVar(&outputDir, "out-dir", "", "directory for saved reports (default: output.dir)")
	generateCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")
	generateCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	dictation, err := readDictation(args, dictationFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	progress := io.Discard
	if !quiet {
		progress = cmd.ErrOrStderr()
	}

	a, err := newApp(pipeline.WithObserver(progressPrinter(progress, verbose)))
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	req := pipeline.Request{Dictation: dictation, Sex: model.ParseSex(patientSex)}
	if dicomPath != "" {
		info, err := study.ReadFile(dicomPath)
		if err != nil {
			return err
		}
		if !study.IsCT(info) {
			a.logger.Warn("study is not a CT", zap.String("modality", info.Modality))
		}
		req.Study = info
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	report, err := a.pipeline.GenerateReport(ctx, req)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	dir := outputDir
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	st, err := store.Open(ctx, a.cfg.Store, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Save(ctx, report)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	fmt.Fprintf(progress, "✓ Saved report %s\n", id)
	if verbose {
		a.printUsage(progress)
	}

	renderer := pipeline.NewRenderer(a.catalog)
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return err
		}
		fmt.Fprintf(progress, "✓ Wrote %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return err
		}
		fmt.Fprintf(progress, "✓ Wrote %s\n", outMD)
	}
	if outPDF != "" {
		font, err := pipeline.FindFont(a.cfg.Output.PDFFont)
		if err != nil {
			return err
		}
		if err := renderer.RenderPDF(report, outPDF, font); err != nil {
			return err
		}
		fmt.Fprintf(progress, "✓ Wrote %s\n", outPDF)
	}

	fmt.Fprintln(progress)
	fmt.Fprintln(cmd.OutOrStdout(), renderer.Markdown(report))
	return nil
}

// readDictation takes the dictation from the argument, a file, or stdin,
// in that order
func readDictation(args []string, file string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case len(args) == 1:
		text = args[0]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read dictation: %w", err)
		}
		text = string(data)
	default:
		if f, ok := stdin.(*os.File); ok {
			if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
				return "", fmt.Errorf("no dictation given (pass it as an argument, with --file, or on stdin)")
			}
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("dictation is empty")
	}
	return text, nil
}
