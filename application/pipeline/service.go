package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/chat"
	"ytaudio-bot/domain/media"
)

// Outcome is the terminal state of a request
type Outcome string

const (
	OutcomeDelivered        Outcome = "delivered"
	OutcomeInvalidInput     Outcome = "invalid_input"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeError            Outcome = "error"
)

// Recorder receives pipeline observations (implemented by the metrics package)
type Recorder interface {
	ObserveRequest(outcome string, duration time.Duration)
	ObserveExtraction(duration time.Duration, size int, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, time.Duration) {}
func (nopRecorder) ObserveExtraction(time.Duration, int, error) {}

// DefaultActivityInterval is how often the chat activity indicator is renewed
const DefaultActivityInterval = 4 * time.Second

// Service runs one request through resolve, extract and deliver
type Service struct {
	resolver  media.Resolver
	extractor audio.Extractor
	messenger chat.Messenger
	messages  Messages
	recorder  Recorder
	logger    *slog.Logger

	activityInterval time.Duration
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithMessages overrides the reply texts; empty fields keep their defaults
func WithMessages(m Messages) Option {
	return func(s *Service) {
		s.messages = m.WithDefaults()
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithActivityInterval sets how often the activity indicator is renewed while
// a request runs. Zero or less disables it.
func WithActivityInterval(d time.Duration) Option {
	return func(s *Service) {
		s.activityInterval = d
	}
}

// NewService creates a new pipeline Service
func NewService(resolver media.Resolver, extractor audio.Extractor, messenger chat.Messenger, opts ...Option) *Service {
	s := &Service{
		resolver:  resolver,
		extractor: extractor,
		messenger: messenger,
		messages:  DefaultMessages(),
		recorder:  nopRecorder{},
		logger:    slog.Default(),

		activityInterval: DefaultActivityInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Messages returns the reply texts in use
func (s *Service) Messages() Messages {
	return s.messages
}

// Handle processes a request to one of its terminal outcomes.
// Every failure, including a panic, ends in a single reply to the chat and
// is never returned to the caller.
func (s *Service) Handle(ctx context.Context, req chat.InboundRequest) (outcome Outcome) {
	start := time.Now()
	logger := s.logger.With("request_id", req.ID, "session_id", req.SessionID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", "panic", r, "stack", string(debug.Stack()))
			s.reply(ctx, logger, req.SessionID, s.messages.GenericError)
			outcome = OutcomeError
		}
		elapsed := time.Since(start)
		s.recorder.ObserveRequest(string(outcome), elapsed)
		logger.Info("request finished", "outcome", string(outcome), "duration", elapsed)
	}()

	logger.Info("request received", "text_len", len(req.Text))

	if err := s.process(ctx, logger, req); err != nil {
		return s.fail(ctx, logger, req.SessionID, err)
	}
	return OutcomeDelivered
}

// process runs the stages in order and stops at the first error
func (s *Service) process(ctx context.Context, logger *slog.Logger, req chat.InboundRequest) error {
	defer s.keepActive(ctx, logger, req.SessionID)()

	if err := s.messenger.SendText(ctx, req.SessionID, s.messages.Acknowledge); err != nil {
		return fmt.Errorf("send acknowledgment: %w", err)
	}

	resolved, err := s.resolver.Resolve(ctx, req.Text)
	if err != nil {
		return err
	}
	logger.Info("media resolved", "url", resolved.CanonicalURL, "title", resolved.Title)

	extractStart := time.Now()
	payload, err := s.extractor.Extract(ctx, resolved)
	size := 0
	if payload != nil {
		size = payload.Size()
	}
	s.recorder.ObserveExtraction(time.Since(extractStart), size, err)
	if err != nil {
		return err
	}
	if size == 0 {
		return &audio.ExtractionError{URL: resolved.CanonicalURL, Err: errors.New("empty audio output")}
	}
	logger.Info("audio extracted", "filename", payload.Filename, "bytes", size)

	if err := s.messenger.SendAudio(ctx, req.SessionID, payload); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// keepActive renews the chat activity indicator until the returned stop
// function is called. Messengers without one get a no-op.
func (s *Service) keepActive(ctx context.Context, logger *slog.Logger, sessionID string) (stop func()) {
	notifier, ok := s.messenger.(chat.ActivityNotifier)
	if !ok || s.activityInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(s.activityInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := notifier.NotifyActivity(ctx, sessionID); err != nil {
					logger.Debug("activity notification failed", "err", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// fail maps an error to its outcome and sends the matching reply
func (s *Service) fail(ctx context.Context, logger *slog.Logger, sessionID string, err error) Outcome {
	var extractErr *audio.ExtractionError

	switch {
	case errors.Is(err, media.ErrInvalidLink):
		logger.Info("invalid link", "err", err)
		s.reply(ctx, logger, sessionID, s.messages.InvalidLink)
		return OutcomeInvalidInput

	case errors.Is(err, media.ErrNotFound):
		logger.Info("no search results", "err", err)
		s.reply(ctx, logger, sessionID, s.messages.NotFound)
		return OutcomeNotFound

	case errors.As(err, &extractErr):
		logger.Warn("audio extraction failed",
			"err", err,
			"exit_code", extractErr.ExitCode,
			"timed_out", extractErr.TimedOut,
			"stderr", extractErr.Stderr,
		)
		s.reply(ctx, logger, sessionID, s.messages.DownloadFailed)
		return OutcomeExtractionFailed

	default:
		logger.Error("request failed", "err", err)
		s.reply(ctx, logger, sessionID, s.messages.GenericError)
		return OutcomeError
	}
}

// reply sends a text and only logs delivery errors
func (s *Service) reply(ctx context.Context, logger *slog.Logger, sessionID, text string) {
	if err := s.messenger.SendText(ctx, sessionID, text); err != nil {
		logger.Error("failed to send reply", "err", err)
	}
}
