package media

import (
	"fmt"
	"strings"
)

// WatchURLPrefix is the canonical watch URL every search result is mapped to
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// videoIDMarker separates the watch URL from the video identifier
const videoIDMarker = "v="

// DirectLinkHosts lists the host substrings that mark input as a direct link
var DirectLinkHosts = []string{"youtube.com", "youtu.be"}

// ResolvedMedia is a single playable video chosen for a request
type ResolvedMedia struct {
	CanonicalURL string
	VideoID      string
	Title        string
}

// NewResolvedMedia creates a ResolvedMedia with validation
func NewResolvedMedia(canonicalURL, videoID, title string) (ResolvedMedia, error) {
	if canonicalURL == "" {
		return ResolvedMedia{}, fmt.Errorf("canonical url is required")
	}
	return ResolvedMedia{
		CanonicalURL: canonicalURL,
		VideoID:      videoID,
		Title:        title,
	}, nil
}

// IsDirectLink reports whether text contains a recognized video host.
// This is a substring check, not URL parsing.
func IsDirectLink(text string) bool {
	for _, host := range DirectLinkHosts {
		if strings.Contains(text, host) {
			return true
		}
	}
	return false
}

// ExtractVideoID returns everything after the last "v=" marker in link.
// The last marker wins on purpose, so "...?v=a&list=x&v=b" yields "b".
// When the marker is absent the whole (trimmed) link is returned.
func ExtractVideoID(link string) string {
	link = strings.TrimSpace(link)
	if i := strings.LastIndex(link, videoIDMarker); i >= 0 {
		return link[i+len(videoIDMarker):]
	}
	return link
}

// WatchURL builds the canonical watch URL for a video ID
func WatchURL(videoID string) string {
	return WatchURLPrefix + videoID
}
