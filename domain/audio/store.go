package audio

// FileStore persists extracted audio to local storage
// This is a port that can be implemented by different infrastructure adapters
type FileStore interface {
	// Exists returns true if the file exists
	Exists(path string) bool

	// WriteFile stores data at path, creating parent directories as needed
	WriteFile(path string, data []byte) error
}
