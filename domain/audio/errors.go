package audio

import (
	"errors"
	"fmt"
)

// ErrExtractionFailed is matched by every ExtractionError
var ErrExtractionFailed = errors.New("audio extraction failed")

// ExtractionError describes a failed run of the extraction tool
type ExtractionError struct {
	URL      string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *ExtractionError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("audio extraction timed out for %s", e.URL)
	case e.Err != nil:
		return fmt.Sprintf("audio extraction failed for %s (exit code %d): %v", e.URL, e.ExitCode, e.Err)
	default:
		return fmt.Sprintf("audio extraction failed for %s (exit code %d)", e.URL, e.ExitCode)
	}
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExtractionFailed) true for any ExtractionError
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}
