package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/media"
)

// DefaultTimeout bounds a single extraction run
const DefaultTimeout = 10 * time.Minute

var errEmptyOutput = errors.New("extraction produced no output")

// Extractor implements audio.Extractor using yt-dlp
type Extractor struct {
	ytdlpPath   string
	ffmpegPath  string
	audioFormat string
	timeout     time.Duration
	extraArgs   []string
	runner      CommandRunner
	logger      *slog.Logger
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithYtDlpPath sets a custom yt-dlp executable path
func WithYtDlpPath(path string) ExtractorOption {
	return func(e *Extractor) {
		if path != "" {
			e.ytdlpPath = path
		}
	}
}

// WithFFmpegPath points yt-dlp at a specific ffmpeg binary, which it needs to
// convert the downloaded stream. Empty means ffmpeg is looked up on PATH.
func WithFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithAudioFormat sets the target audio codec (mp3, m4a, opus, ...)
func WithAudioFormat(format string) ExtractorOption {
	return func(e *Extractor) {
		if format != "" {
			e.audioFormat = format
		}
	}
}

// WithTimeout bounds each run; zero or negative disables the bound
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithExtraArgs appends arguments before the URL (cookies, proxies, ...)
func WithExtraArgs(args ...string) ExtractorOption {
	return func(e *Extractor) {
		e.extraArgs = append(e.extraArgs, args...)
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates a new yt-dlp based audio extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ytdlpPath:   "yt-dlp",
		audioFormat: audio.DefaultFormat,
		timeout:     DefaultTimeout,
		runner:      &ExecCommandRunner{},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Args returns the yt-dlp arguments used to extract audio from url to stdout
func (e *Extractor) Args(url string) []string {
	args := []string{
		"-x", // Audio only
		"--audio-format", e.audioFormat,
		"--no-playlist",
		"-o", "-", // Write to stdout
	}
	if e.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", e.ffmpegPath)
	}
	args = append(args, e.extraArgs...)
	return append(args, "--", url)
}

// Extract implements audio.Extractor
func (e *Extractor) Extract(ctx context.Context, m media.ResolvedMedia) (*audio.Payload, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.runner.Run(runCtx, e.ytdlpPath, e.Args(m.CanonicalURL)...)
	if result == nil {
		result = &CommandResult{ExitCode: -1}
	}
	stderr := strings.TrimSpace(string(result.Stderr))

	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &audio.ExtractionError{
			URL:      m.CanonicalURL,
			ExitCode: result.ExitCode,
			Stderr:   stderr,
			TimedOut: true,
			Err:      runCtx.Err(),
		}
	}
	if err != nil {
		return nil, &audio.ExtractionError{
			URL:      m.CanonicalURL,
			ExitCode: result.ExitCode,
			Stderr:   stderr,
			Err:      err,
		}
	}
	if len(result.Stdout) == 0 {
		return nil, &audio.ExtractionError{
			URL:      m.CanonicalURL,
			ExitCode: result.ExitCode,
			Stderr:   stderr,
			Err:      errEmptyOutput,
		}
	}

	payload, err := audio.NewPayload(result.Stdout, m.Title, e.audioFormat)
	if err != nil {
		return nil, fmt.Errorf("build audio payload: %w", err)
	}

	e.logger.Debug("yt-dlp finished",
		"url", m.CanonicalURL,
		"bytes", payload.Size(),
		"duration", time.Since(start),
	)
	return payload, nil
}

// VerifyInstalled checks that yt-dlp and the ffmpeg it converts with are available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	result, err := e.runner.Run(ctx, e.ytdlpPath, "--version")
	if err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	if result != nil {
		e.logger.Debug("yt-dlp available", "version", strings.TrimSpace(string(result.Stdout)))
	}

	ffmpeg := e.ffmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, err := e.runner.Run(ctx, ffmpeg, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Extractor implements audio.Extractor
var _ audio.Extractor = (*Extractor)(nil)
