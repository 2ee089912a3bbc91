package youtube

import (
	"context"
	"fmt"

	"ytaudio-bot/domain/media"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeService defines the YouTube Data API operations used by the client
// This allows mocking the YouTube API in tests
type YouTubeService interface {
	ListVideos(ctx context.Context, id string) ([]*youtube.Video, error)
	SearchVideos(ctx context.Context, query string, maxResults int64) ([]*youtube.SearchResult, error)
}

// GoogleYouTubeService is the production implementation using the YouTube Data API v3
type GoogleYouTubeService struct {
	service *youtube.Service
}

// ListVideos returns the videos with the given id
func (s *GoogleYouTubeService) ListVideos(ctx context.Context, id string) ([]*youtube.Video, error) {
	r, err := s.service.Videos.List([]string{"snippet"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return r.Items, nil
}

// SearchVideos runs a free-text video search
func (s *GoogleYouTubeService) SearchVideos(ctx context.Context, query string, maxResults int64) ([]*youtube.SearchResult, error) {
	r, err := s.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return r.Items, nil
}

// Client implements media.MetadataClient using the YouTube Data API
type Client struct {
	youtubeService YouTubeService
	endpoint       string
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithYouTubeService sets a custom YouTube service (for testing)
func WithYouTubeService(svc YouTubeService) ClientOption {
	return func(c *Client) {
		c.youtubeService = svc
	}
}

// WithEndpoint overrides the API base URL
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// NewClient creates a new YouTube metadata client
// If no YouTubeService option is provided, it initializes a real API service
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{}

	for _, opt := range opts {
		opt(c)
	}

	if c.youtubeService == nil {
		svc, err := newGoogleYouTubeService(ctx, apiKey, c.endpoint)
		if err != nil {
			return nil, err
		}
		c.youtubeService = svc
	}

	return c, nil
}

// newGoogleYouTubeService creates a production YouTube service authenticated with an API key
func newGoogleYouTubeService(ctx context.Context, apiKey string, endpoint string) (*GoogleYouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	srv, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create youtube service: %w", err)
	}

	return &GoogleYouTubeService{service: srv}, nil
}

// LookupByID implements media.MetadataClient
func (c *Client) LookupByID(ctx context.Context, id string) ([]media.VideoInfo, error) {
	videos, err := c.youtubeService.ListVideos(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	var result []media.VideoInfo
	for _, v := range videos {
		if v == nil {
			continue
		}
		result = append(result, media.VideoInfo{
			ID:    v.Id,
			Title: snippetTitle(v.Snippet),
		})
	}
	return result, nil
}

// Search implements media.MetadataClient
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]media.VideoInfo, error) {
	items, err := c.youtubeService.SearchVideos(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}

	var result []media.VideoInfo
	for _, item := range items {
		// Channels and playlists carry no video id
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		result = append(result, media.VideoInfo{
			ID:    item.Id.VideoId,
			Title: title,
		})
	}
	return result, nil
}

func snippetTitle(s *youtube.VideoSnippet) string {
	if s == nil {
		return ""
	}
	return s.Title
}

// Ensure Client implements media.MetadataClient
var _ media.MetadataClient = (*Client)(nil)
