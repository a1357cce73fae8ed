// Package output persists activity reports to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/naka-gawa/github-activity/internal/domain"
)

// FileWriter overwrites a single JSON file with the latest summaries.
type FileWriter struct {
	path string
}

// NewFileWriter returns a writer for path.
func NewFileWriter(path string) (*FileWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	return &FileWriter{path: path}, nil
}

// Path returns the file the writer targets.
func (w *FileWriter) Path() string {
	return w.path
}

// Write replaces the file with summaries as an indented JSON array of records.
// The new content is written to a temporary file and renamed into place, so a
// failed write leaves the previous report intact.
func (w *FileWriter) Write(summaries []domain.RepositorySummary) error {
	if summaries == nil {
		summaries = []domain.RepositorySummary{}
	}
	data, err := json.MarshalIndent(summaries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set output file mode: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}
