package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PACSamericana/poly/internal/model"
)

func testReport() *model.Report {
	r := model.NewReport("CT Abdomen and Pelvis")
	r.Sections["liver"] = model.SectionResult{Text: "Mild hepatic steatosis."}
	r.Sections["spleen"] = model.SectionResult{Text: "The spleen is normal in size."}
	return r
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFileStore_RoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.now = fixedClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	id, err := s.Save(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != "ct_report_20240506_070809" {
		t.Errorf("Unexpected id %q", id)
	}

	loaded, err := s.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Sections["liver"].Text != "Mild hepatic steatosis." {
		t.Errorf("Unexpected liver text %q", loaded.Sections["liver"].Text)
	}
	if len(loaded.Sections) != 2 {
		t.Errorf("Expected 2 sections, got %d", len(loaded.Sections))
	}
}

func TestFileStore_IndentedJSON(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	id, err := s.Save(context.Background(), testReport())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.MarshalIndent(testReport(), "", "  ")
	if string(data) != string(want) {
		t.Errorf("File content differs from indented report:\n%s", data)
	}
}

func TestFileStore_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	s.now = fixedClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	first, err := s.Save(context.Background(), testReport())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Save(context.Background(), model.NewReport("other"))
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatal("Expected distinct ids within the same second")
	}
	if second != "ct_report_20240506_070809_2" {
		t.Errorf("Unexpected second id %q", second)
	}

	loaded, _ := s.Load(context.Background(), first)
	if loaded.StudyType != "CT Abdomen and Pelvis" {
		t.Error("First report was overwritten")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("Expected 2 files, got %d", len(entries))
	}
}

func TestFileStore_LoadNotFound(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())

	for _, id := range []string{"ct_report_20240101_000000", "../etc/passwd", ""} {
		if _, err := s.Load(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFileStore_CancelledSave(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Save(ctx, testReport()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Error("Expected no file written")
	}
}

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	s, err := Open(context.Background(), model.StoreConfig{Driver: "file"}, dir)
	if err != nil {
		t.Fatalf("Open file store: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Expected *FileStore, got %T", s)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("Expected output dir created")
	}

	if _, err := Open(context.Background(), model.StoreConfig{Driver: "postgres"}, dir); err == nil {
		t.Error("Expected error for postgres without DSN")
	}
	if _, err := Open(context.Background(), model.StoreConfig{Driver: "mongo"}, dir); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
