package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
)

// Renderer writes reports as JSON and Markdown
type Renderer struct {
	catalog *catalog.Catalog
}

// NewRenderer creates a renderer that orders sections by cat
func NewRenderer(cat *catalog.Catalog) *Renderer {
	return &Renderer{catalog: cat}
}

// Markdown renders the report with one "###" header per section in catalog
// order. Sections missing from the report are skipped.
func (r *Renderer) Markdown(report *model.Report) string {
	lines := []string{"# " + reportTitle(report)}
	if meta := studyLine(report.Study); meta != "" {
		lines = append(lines, "", meta)
	}

	lines = append(lines, "\n## FINDINGS:")
	for _, section := range r.catalog.Sections {
		result, ok := report.Sections[section.Key]
		if !ok {
			continue
		}
		lines = append(lines, "\n### "+section.DisplayTitle(), result.Text)
	}

	return strings.Join(lines, "\n")
}

func reportTitle(report *model.Report) string {
	title := "CT ABDOMEN AND PELVIS"
	if report.StudyType != "" {
		title = cases.Upper(language.English).String(report.StudyType)
	}
	return title + " REPORT"
}

// studyLine joins the known header fields, or returns "" when there are none
func studyLine(s *model.StudyInfo) string {
	if s == nil {
		return ""
	}
	var meta []string
	if s.AccessionNumber != "" {
		meta = append(meta, "Accession: "+s.AccessionNumber)
	}
	if !s.StudyDate.IsZero() {
		meta = append(meta, "Study date: "+s.StudyDate.Format("2006-01-02"))
	}
	if s.StudyDescription != "" {
		meta = append(meta, "Description: "+s.StudyDescription)
	}
	return strings.Join(meta, " | ")
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// RenderMarkdown writes the Markdown rendering of the report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(report)+"\n"), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}
