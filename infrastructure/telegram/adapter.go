package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/chat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultPollTimeout is the long-poll timeout in seconds
const DefaultPollTimeout = 30

// BotAPI defines the Telegram Bot API operations used by the adapter
// This allows mocking the Telegram API in tests
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Replies holds the texts the adapter sends on its own
type Replies struct {
	Greeting       string
	Unauthorized   string
	UnknownCommand string
	Unavailable    string
}

// Config holds the adapter settings
type Config struct {
	Token        string
	PollTimeout  int
	AllowedChats []int64 // empty allows every chat
	Replies      Replies
}

// Adapter implements chat.Messenger on top of the Telegram Bot API
type Adapter struct {
	bot         BotAPI
	pollTimeout int
	allowed     map[int64]bool
	replies     Replies
	logger      *slog.Logger
}

// AdapterOption is a functional option for configuring Adapter
type AdapterOption func(*Adapter)

// WithBotAPI sets a custom Bot API client (for testing)
func WithBotAPI(bot BotAPI) AdapterOption {
	return func(a *Adapter) {
		a.bot = bot
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter creates a Telegram adapter
// If no BotAPI option is provided, it connects to Telegram with cfg.Token
func NewAdapter(cfg Config, opts ...AdapterOption) (*Adapter, error) {
	a := &Adapter{
		pollTimeout: cfg.PollTimeout,
		allowed:     make(map[int64]bool),
		replies:     cfg.Replies,
		logger:      slog.Default(),
	}
	if a.pollTimeout <= 0 {
		a.pollTimeout = DefaultPollTimeout
	}
	for _, id := range cfg.AllowedChats {
		a.allowed[id] = true
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.bot == nil {
		if cfg.Token == "" {
			return nil, fmt.Errorf("telegram bot token is required")
		}
		bot, err := tgbotapi.NewBotAPI(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("telegram bot init: %w", err)
		}
		a.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
		a.bot = bot
	}

	return a, nil
}

// Run polls Telegram for updates and hands text messages to handler until
// ctx is done
func (a *Adapter) Run(ctx context.Context, handler chat.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.pollTimeout
	updates := a.bot.GetUpdatesChan(u)

	a.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("telegram polling stopping")
			a.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			a.handleUpdate(ctx, update, handler)
		}
	}
}

func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update, handler chat.Handler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	sessionID := strconv.FormatInt(chatID, 10)

	if !a.isAllowed(chatID) {
		a.logger.Warn("message from chat outside allow list", "chat_id", chatID)
		a.reply(ctx, sessionID, a.replies.Unauthorized)
		return
	}

	if msg.IsCommand() {
		a.handleCommand(ctx, sessionID, msg.Command())
		return
	}

	req, err := chat.NewInboundRequest(sessionID, msg.Text, time.Unix(int64(msg.Date), 0))
	if err != nil {
		return
	}

	if err := a.NotifyActivity(ctx, sessionID); err != nil {
		a.logger.Debug("chat action failed", "chat_id", chatID, "err", err)
	}

	if err := handler(ctx, req); err != nil {
		a.logger.Error("failed to dispatch request", "request_id", req.ID, "chat_id", chatID, "err", err)
		a.reply(ctx, sessionID, a.replies.Unavailable)
	}
}

func (a *Adapter) handleCommand(ctx context.Context, sessionID, command string) {
	switch command {
	case "start", "help":
		a.reply(ctx, sessionID, a.replies.Greeting)
	default:
		a.reply(ctx, sessionID, a.replies.UnknownCommand)
	}
}

func (a *Adapter) isAllowed(chatID int64) bool {
	if len(a.allowed) == 0 {
		return true
	}
	return a.allowed[chatID]
}

func (a *Adapter) reply(ctx context.Context, sessionID, text string) {
	if text == "" {
		return
	}
	if err := a.SendText(ctx, sessionID, text); err != nil {
		a.logger.Error("failed to send reply", "chat_id", sessionID, "err", err)
	}
}

// SendText implements chat.Messenger
func (a *Adapter) SendText(ctx context.Context, sessionID string, text string) error {
	chatID, err := parseChatID(sessionID)
	if err != nil {
		return err
	}
	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	return nil
}

// NotifyActivity implements chat.ActivityNotifier with the "sending audio"
// chat action, which Telegram shows for about five seconds
func (a *Adapter) NotifyActivity(ctx context.Context, sessionID string) error {
	chatID, err := parseChatID(sessionID)
	if err != nil {
		return err
	}
	if _, err := a.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadVoice)); err != nil {
		return fmt.Errorf("telegram chat action: %w", err)
	}
	return nil
}

// SendAudio implements chat.Messenger
func (a *Adapter) SendAudio(ctx context.Context, sessionID string, payload *audio.Payload) error {
	chatID, err := parseChatID(sessionID)
	if err != nil {
		return err
	}

	file := tgbotapi.FileBytes{Name: payload.Filename, Bytes: payload.Data}
	msg := tgbotapi.NewAudio(chatID, file)
	msg.Title = payload.Title

	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send audio: %w", err)
	}
	return nil
}

func parseChatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", sessionID, err)
	}
	return id, nil
}

// Ensure Adapter implements chat.Transport
var (
	_ chat.Transport        = (*Adapter)(nil)
	_ chat.ActivityNotifier = (*Adapter)(nil)
)
