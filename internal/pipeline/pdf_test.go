package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
)

func TestFindFont(t *testing.T) {
	if _, err := FindFont(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("Expected error for a configured font that does not exist")
	}

	font := filepath.Join(t.TempDir(), "custom.ttf")
	if err := os.WriteFile(font, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := FindFont(font)
	if err != nil || got != font {
		t.Errorf("Expected configured font %s, got %q %v", font, got, err)
	}

	saved := fontCandidates
	fontCandidates = []string{filepath.Join(t.TempDir(), "none.ttf")}
	defer func() { fontCandidates = saved }()
	if _, err := FindFont(""); !errors.Is(err, ErrNoFont) {
		t.Errorf("Expected ErrNoFont, got %v", err)
	}
}

func TestWritePDF_BadFont(t *testing.T) {
	cat := catalog.Default()
	font := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(font, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := NewRenderer(cat).WritePDF(&buf, fullReport(cat), font); err == nil {
		t.Error("Expected error for an unreadable font")
	}
}

func TestRenderPDF(t *testing.T) {
	font, err := FindFont("")
	if err != nil {
		t.Skip("no DejaVu Sans installed")
	}

	cat := catalog.Default()
	report := fullReport(cat)
	report.Study = &model.StudyInfo{
		AccessionNumber: "A123",
		StudyDate:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := NewRenderer(cat).RenderPDF(report, path, font); err != nil {
		t.Fatalf("RenderPDF failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("Expected a PDF header, got %q", data[:min(len(data), 8)])
	}
}
