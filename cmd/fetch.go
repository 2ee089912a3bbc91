package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"ytaudio-bot/application/fetch"
	"ytaudio-bot/application/resolve"
	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/media"
	"ytaudio-bot/infrastructure/config"
	"ytaudio-bot/infrastructure/filesystem"
	"ytaudio-bot/infrastructure/youtube"
	"ytaudio-bot/infrastructure/ytdlp"

	"github.com/spf13/cobra"
)

var (
	fetchOutputDir string
	fetchOverwrite bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <link or search phrase>",
	Short: "Download the audio of one video to a local file",
	Long: `Resolve a YouTube link or search phrase the same way the bot does and save
the extracted audio to a file named after the video title.

Only YOUTUBE_API_KEY is required; no Telegram token is needed.

Example:
  ytaudio-bot fetch "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  ytaudio-bot fetch never gonna give you up --output-dir ./music`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchOutputDir, "output-dir", ".", "Directory to save the audio file in")
	fetchCmd.Flags().BoolVar(&fetchOverwrite, "overwrite", false, "Replace an existing file with the same name")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if cfg.YouTube.APIKey == "" {
		return fmt.Errorf("%w: %s", config.ErrMissingSecret, config.EnvYouTubeAPIKey)
	}
	if err := cfg.ValidateSettings(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	timeout, err := cfg.ExtractionTimeout()
	if err != nil {
		return err
	}

	// Create dependencies using production implementations
	metadata, err := youtube.NewClient(cmd.Context(), cfg.YouTube.APIKey)
	if err != nil {
		return err
	}
	extractor := ytdlp.NewExtractor(
		ytdlp.WithYtDlpPath(cfg.Extractor.Path),
		ytdlp.WithFFmpegPath(cfg.Extractor.FFmpegPath),
		ytdlp.WithAudioFormat(cfg.Extractor.AudioFormat),
		ytdlp.WithTimeout(timeout),
		ytdlp.WithExtraArgs(cfg.Extractor.ExtraArgs...),
		ytdlp.WithLogger(logger),
	)

	return RunFetchWithDependencies(
		cmd.Context(),
		resolve.NewService(metadata, logger),
		extractor,
		filesystem.NewStore(),
		fetchOutputDir,
		cfg.Extractor.AudioFormat,
		strings.Join(args, " "),
		fetchOverwrite,
		os.Stdout,
	)
}

// RunFetchWithDependencies runs the fetch command with injected dependencies (for testing)
func RunFetchWithDependencies(
	ctx context.Context,
	resolver media.Resolver,
	extractor audio.Extractor,
	store audio.FileStore,
	outputDir string,
	format string,
	query string,
	overwrite bool,
	output OutputWriter,
) error {
	// Verify yt-dlp is available if extractor supports it
	if verifiable, ok := extractor.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("yt-dlp verification failed: %w", err)
		}
	}

	service := fetch.NewService(resolver, extractor, store, outputDir, format)

	fmt.Fprintf(output, "Fetching audio for %q...\n", query)

	result, err := service.Fetch(ctx, fetch.Input{Query: query, Overwrite: overwrite})
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Resolved: %s (%s)\n", result.Media.Title, result.Media.CanonicalURL)
	fmt.Fprintf(output, "Successfully created: %s (%d bytes)\n", result.OutputPath, result.Size)
	return nil
}
