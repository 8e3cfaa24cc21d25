package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists finished documents under a directory, one file per run
// identifier. Re-running the same ID overwrites the previous result.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Persist writes data to the run's output path and returns it.
func (s *FileStore) Persist(runID string, data []byte) (string, error) {
	path := s.Path(runID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Path returns the output path a run's document is stored under. The run ID
// is flattened to its base name so callers cannot escape the store directory.
func (s *FileStore) Path(runID string) string {
	return filepath.Join(s.dir, filepath.Base(runID)+"_redacted.pdf")
}

// Open returns the stored document for a run, or an error when the run has
// not persisted anything yet.
func (s *FileStore) Open(runID string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(runID))
	if err != nil {
		return nil, fmt.Errorf("reading stored document for run %s: %w", runID, err)
	}
	return data, nil
}

// Remove deletes the stored document for a run, ignoring a missing file.
func (s *FileStore) Remove(runID string) error {
	err := os.Remove(s.Path(runID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stored document for run %s: %w", runID, err)
	}
	return nil
}
