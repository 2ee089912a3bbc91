package media

import "context"

// VideoInfo is the subset of video metadata the bot needs
type VideoInfo struct {
	ID    string
	Title string
}

// MetadataClient defines the read-only operations of the video metadata API.
// This is a port that can be implemented by different infrastructure adapters
type MetadataClient interface {
	// LookupByID returns the videos matching id; an empty slice means no match
	LookupByID(ctx context.Context, id string) ([]VideoInfo, error)

	// Search returns at most maxResults videos matching the free-text query
	Search(ctx context.Context, query string, maxResults int64) ([]VideoInfo, error)
}

// Resolver turns raw user text into a single playable video
type Resolver interface {
	Resolve(ctx context.Context, rawText string) (ResolvedMedia, error)
}
