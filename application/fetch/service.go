package fetch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/media"
)

// ErrOutputExists is returned when the target file exists and overwriting is off
var ErrOutputExists = errors.New("output file already exists")

// Result contains the result of a fetch operation
type Result struct {
	OutputPath string
	Media      media.ResolvedMedia
	Size       int
}

// Input represents the input for a fetch operation
type Input struct {
	Query     string
	Overwrite bool
}

// Service resolves a link or search phrase and saves its audio to disk
type Service struct {
	resolver  media.Resolver
	extractor audio.Extractor
	store     audio.FileStore
	outputDir string
	format    string
}

// NewService creates a new fetch Service; format is the extractor's audio format
func NewService(resolver media.Resolver, extractor audio.Extractor, store audio.FileStore, outputDir, format string) *Service {
	if outputDir == "" {
		outputDir = "."
	}
	if format == "" {
		format = audio.DefaultFormat
	}
	return &Service{
		resolver:  resolver,
		extractor: extractor,
		store:     store,
		outputDir: outputDir,
		format:    format,
	}
}

// Fetch runs resolve and extract, then writes the payload under the output directory
func (s *Service) Fetch(ctx context.Context, input Input) (*Result, error) {
	resolved, err := s.resolver.Resolve(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(s.outputDir, audio.Filename(resolved.Title, s.format))
	if !input.Overwrite && s.store.Exists(outputPath) {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, outputPath)
	}

	payload, err := s.extractor.Extract(ctx, resolved)
	if err != nil {
		return nil, err
	}

	outputPath = filepath.Join(s.outputDir, payload.Filename)
	if err := s.store.WriteFile(outputPath, payload.Data); err != nil {
		return nil, err
	}

	return &Result{
		OutputPath: outputPath,
		Media:      resolved,
		Size:       payload.Size(),
	}, nil
}
