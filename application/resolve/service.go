package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ytaudio-bot/domain/media"
)

// searchResultLimit is the number of search results requested; only the top one is used
const searchResultLimit = 1

// Service resolves raw chat text to a single video using the metadata API
type Service struct {
	client media.MetadataClient
	logger *slog.Logger
}

// NewService creates a new resolve Service
func NewService(client media.MetadataClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// Resolve implements media.Resolver.
//
// Text containing a recognized video host is treated as a direct link and
// looked up by ID; anything else is a free-text search. A link with no
// matching video yields media.ErrInvalidLink and an empty search yields
// media.ErrNotFound. API failures are returned wrapped and are not retried.
func (s *Service) Resolve(ctx context.Context, rawText string) (media.ResolvedMedia, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return media.ResolvedMedia{}, media.ErrInvalidLink
	}

	if media.IsDirectLink(text) {
		return s.resolveLink(ctx, text)
	}
	return s.resolveSearch(ctx, text)
}

func (s *Service) resolveLink(ctx context.Context, link string) (media.ResolvedMedia, error) {
	id := media.ExtractVideoID(link)
	if id == "" {
		return media.ResolvedMedia{}, media.ErrInvalidLink
	}

	videos, err := s.client.LookupByID(ctx, id)
	if err != nil {
		return media.ResolvedMedia{}, fmt.Errorf("lookup video %q: %w", id, err)
	}
	if len(videos) == 0 {
		s.logger.Debug("no video for link", "video_id", id)
		return media.ResolvedMedia{}, media.ErrInvalidLink
	}

	s.logger.Debug("resolved link", "video_id", id, "title", videos[0].Title)
	return media.NewResolvedMedia(link, id, videos[0].Title)
}

func (s *Service) resolveSearch(ctx context.Context, query string) (media.ResolvedMedia, error) {
	videos, err := s.client.Search(ctx, query, searchResultLimit)
	if err != nil {
		return media.ResolvedMedia{}, fmt.Errorf("search videos: %w", err)
	}
	if len(videos) == 0 || videos[0].ID == "" {
		s.logger.Debug("no search results", "query", query)
		return media.ResolvedMedia{}, media.ErrNotFound
	}

	top := videos[0]
	s.logger.Debug("resolved search", "query", query, "video_id", top.ID, "title", top.Title)
	return media.NewResolvedMedia(media.WatchURL(top.ID), top.ID, top.Title)
}

// Ensure Service implements media.Resolver
var _ media.Resolver = (*Service)(nil)
