package audio

import (
	"context"

	"ytaudio-bot/domain/media"
)

// Extractor defines the interface for audio extraction operations
// This is a port that can be implemented by different infrastructure adapters
type Extractor interface {
	// Extract downloads the media and returns its audio track in memory
	Extract(ctx context.Context, m media.ResolvedMedia) (*Payload, error)
}
