package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytaudio-bot/application/dispatch"
	"ytaudio-bot/application/pipeline"
	"ytaudio-bot/application/resolve"
	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/chat"
	"ytaudio-bot/domain/media"
	"ytaudio-bot/infrastructure/config"
	"ytaudio-bot/infrastructure/metrics"
	"ytaudio-bot/infrastructure/telegram"
	"ytaudio-bot/infrastructure/youtube"
	"ytaudio-bot/infrastructure/ytdlp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Connects to Telegram with long polling and answers every text message
with the audio of the matching YouTube video.

Requests are processed by a fixed number of workers (workers.count, default 5);
extra requests wait in a queue. Each yt-dlp run is bounded by extractor.timeout.

Example:
  BOT_TOKEN=... YOUTUBE_API_KEY=... ytaudio-bot serve --config config/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// ServeDependencies holds everything the bot needs to run
type ServeDependencies struct {
	Transport chat.Transport
	Metadata  media.MetadataClient
	Extractor audio.Extractor
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Config    *config.Config
	Logger    *slog.Logger
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot start: %w", err)
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout, err := cfg.ExtractionTimeout()
	if err != nil {
		return err
	}

	// Create dependencies using production implementations
	extractor := ytdlp.NewExtractor(
		ytdlp.WithYtDlpPath(cfg.Extractor.Path),
		ytdlp.WithFFmpegPath(cfg.Extractor.FFmpegPath),
		ytdlp.WithAudioFormat(cfg.Extractor.AudioFormat),
		ytdlp.WithTimeout(timeout),
		ytdlp.WithExtraArgs(cfg.Extractor.ExtraArgs...),
		ytdlp.WithLogger(logger),
	)

	metadata, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		return err
	}

	transport, err := telegram.NewAdapter(telegram.Config{
		Token:        cfg.Telegram.Token,
		PollTimeout:  cfg.Telegram.PollTimeout,
		AllowedChats: cfg.Telegram.AllowedChats,
		Replies:      telegramReplies(cfg.Messages),
	}, telegram.WithLogger(logger))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return RunServeWithDependencies(ctx, ServeDependencies{
		Transport: transport,
		Metadata:  metadata,
		Extractor: extractor,
		Metrics:   metrics.NewMetrics(reg),
		Gatherer:  reg,
		Config:    cfg,
		Logger:    logger,
	})
}

// telegramReplies picks the adapter's own reply texts from the configured messages
func telegramReplies(m pipeline.Messages) telegram.Replies {
	m = m.WithDefaults()
	return telegram.Replies{
		Greeting:       m.Greeting,
		Unauthorized:   m.Unauthorized,
		UnknownCommand: m.UnknownCommand,
		Unavailable:    m.GenericError,
	}
}

// RunServeWithDependencies runs the bot with injected dependencies until ctx
// is done, then lets queued requests finish
func RunServeWithDependencies(ctx context.Context, deps ServeDependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	// Verify yt-dlp is available if extractor supports it
	if verifiable, ok := deps.Extractor.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("yt-dlp verification failed: %w", err)
		}
	}

	var pipelineRecorder pipeline.Recorder
	var poolRecorder dispatch.Recorder
	if deps.Metrics != nil {
		pipelineRecorder = deps.Metrics
		poolRecorder = deps.Metrics
	}

	resolver := resolve.NewService(deps.Metadata, logger)
	pipe := pipeline.NewService(resolver, deps.Extractor, deps.Transport,
		pipeline.WithMessages(cfg.Messages),
		pipeline.WithRecorder(pipelineRecorder),
		pipeline.WithLogger(logger),
	)

	pool := dispatch.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize,
		dispatch.WithLogger(logger),
		dispatch.WithRecorder(poolRecorder),
	)
	// Running requests are not cancelled by shutdown; the extraction timeout bounds them
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	defer pool.Drain()

	if cfg.Metrics.Address != "" && deps.Gatherer != nil {
		srv, err := metrics.NewServer(cfg.Metrics.Address, deps.Gatherer, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	handler := func(ctx context.Context, req chat.InboundRequest) error {
		return pool.Submit(ctx, func(taskCtx context.Context) {
			pipe.Handle(taskCtx, req)
		})
	}

	logger.Info("bot started", "workers", pool.Workers(), "queue_size", cfg.Workers.QueueSize)
	err := deps.Transport.Run(ctx, handler)
	logger.Info("bot stopping, waiting for queued requests")
	return err
}
