package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/PACSamericana/poly/internal/model"
)

const filePrefix = "ct_report_"

var idPattern = regexp.MustCompile(`^ct_report_\d{8}_\d{6}(_\d+)?$`)

// FileStore writes one JSON file per report into a directory
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the output directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path for a report id
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the report as ct_report_YYYYMMDD_HHMMSS.json. When a run in
// the same second already used that name, a numeric suffix is added; an
// existing file is never replaced.
func (s *FileStore) Save(ctx context.Context, report *model.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	base := filePrefix + s.now().Format("20060102_150405")
	id := base
	for n := 2; ; n++ {
		f, err := os.OpenFile(s.Path(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			id = base + "_" + strconv.Itoa(n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create report file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write report file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close report file: %w", err)
		}
		return id, nil
	}
}

// Load reads a report previously written by Save
func (s *FileStore) Load(ctx context.Context, id string) (*model.Report, error) {
	if !idPattern.MatchString(id) {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
