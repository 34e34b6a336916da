package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/i474232898/metar-snapshot/internal/weather"
)

// FileWriter writes snapshots as indented JSON to a single path.
type FileWriter struct {
	path string
}

func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Path returns the output file path.
func (w *FileWriter) Path() string {
	return w.path
}

// WriteSnapshot replaces the output file. The JSON is written to a temporary
// file in the same directory and renamed over the target, so readers see the
// old or the new snapshot and never a partial one.
func (w *FileWriter) WriteSnapshot(snapshot weather.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	return nil
}
