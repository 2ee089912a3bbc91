package audio

import (
	"fmt"
	"strings"
)

const (
	// DefaultFormat is the audio format requested from the extraction tool
	DefaultFormat = "mp3"

	// DefaultTitle is used for the filename when a video has no title
	DefaultTitle = "audio"
)

// pathSeparators are replaced in titles so the filename stays a single path element
var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// Payload is an in-memory audio file ready to be sent to a chat
type Payload struct {
	Data     []byte
	Filename string
	Title    string
	Format   string
}

// NewPayload creates a Payload with validation and the standard filename policy
func NewPayload(data []byte, title, format string) (*Payload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio data is empty")
	}
	if format == "" {
		format = DefaultFormat
	}
	return &Payload{
		Data:     data,
		Filename: Filename(title, format),
		Title:    title,
		Format:   format,
	}, nil
}

// Filename returns "{title}.{format}", using DefaultTitle for blank titles
func Filename(title, format string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if format == "" {
		format = DefaultFormat
	}
	return pathSeparators.Replace(title) + "." + format
}

// Size returns the payload size in bytes
func (p *Payload) Size() int {
	return len(p.Data)
}
