package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"ytaudio-bot/domain/audio"
)

// Store implements audio.FileStore using the os package
type Store struct{}

// NewStore creates a new filesystem store
func NewStore() *Store {
	return &Store{}
}

// Exists returns true if the file exists
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFile writes data to a temporary file next to path and renames it,
// so a partially written file never appears under the final name
func (s *Store) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move audio into place: %w", err)
	}
	return nil
}

// Ensure Store implements audio.FileStore
var _ audio.FileStore = (*Store)(nil)
