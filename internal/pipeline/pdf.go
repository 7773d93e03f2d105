package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/PACSamericana/poly/internal/model"
)

const (
	pdfFontFamily = "report"
	pdfMargin     = 50.0
	pdfBodyLine   = 14.0
)

// fontCandidates are searched when output.pdf_font is unset
var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/Library/Fonts/DejaVuSans.ttf",
}

// ErrNoFont is returned when no TrueType font is available for PDF output
var ErrNoFont = errors.New("no TrueType font for PDF output (set output.pdf_font)")

// FindFont returns configured when set, otherwise the first installed
// DejaVu Sans
func FindFont(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("pdf font: %w", err)
		}
		return configured, nil
	}
	for _, path := range fontCandidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNoFont
}

// pdfWriter tracks the cursor so text can flow onto new pages
type pdfWriter struct {
	pdf    *gopdf.GoPdf
	bottom float64
	width  float64
}

func (w *pdfWriter) font(size float64) error {
	return w.pdf.SetFont(pdfFontFamily, "", size)
}

func (w *pdfWriter) line(text string, height float64) error {
	if w.pdf.GetY()+height > w.bottom {
		w.pdf.AddPage()
	}
	if err := w.pdf.Cell(nil, text); err != nil {
		return err
	}
	w.pdf.Br(height)
	return nil
}

// paragraphs wraps each non-blank line of text to the page width
func (w *pdfWriter) paragraphs(text string, height float64) error {
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		wrapped, err := w.pdf.SplitText(para, w.width)
		if err != nil {
			return fmt.Errorf("wrap text: %w", err)
		}
		for _, l := range wrapped {
			if err := w.line(l, height); err != nil {
				return err
			}
		}
	}
	return nil
}

// WritePDF lays the report out on A4 pages in the same order as Markdown
func (r *Renderer) WritePDF(out io.Writer, report *model.Report, fontPath string) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()
	if err := pdf.AddTTFFont(pdfFontFamily, fontPath); err != nil {
		return fmt.Errorf("load font %s: %w", fontPath, err)
	}

	w := &pdfWriter{
		pdf:    pdf,
		bottom: gopdf.PageSizeA4.H - pdfMargin,
		width:  gopdf.PageSizeA4.W - 2*pdfMargin,
	}

	if err := w.font(16); err != nil {
		return err
	}
	if err := w.line(reportTitle(report), 24); err != nil {
		return err
	}
	if meta := studyLine(report.Study); meta != "" {
		if err := w.font(10); err != nil {
			return err
		}
		if err := w.line(meta, 20); err != nil {
			return err
		}
	}
	if err := w.font(13); err != nil {
		return err
	}
	if err := w.line("FINDINGS:", 20); err != nil {
		return err
	}

	for _, section := range r.catalog.Sections {
		result, ok := report.Sections[section.Key]
		if !ok {
			continue
		}
		pdf.Br(4)
		if err := w.font(11.5); err != nil {
			return err
		}
		if err := w.line(section.DisplayTitle(), 16); err != nil {
			return err
		}
		if err := w.font(10.5); err != nil {
			return err
		}
		if err := w.paragraphs(result.Text, pdfBodyLine); err != nil {
			return fmt.Errorf("section %s: %w", section.Key, err)
		}
	}

	if _, err := pdf.WriteTo(out); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}

// RenderPDF writes the PDF rendering of the report to path
func (r *Renderer) RenderPDF(report *model.Report, path, fontPath string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create PDF: %w", err)
	}
	if err := r.WritePDF(f, report, fontPath); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
