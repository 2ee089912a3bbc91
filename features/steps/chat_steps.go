//go:build integration

package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ytaudio-bot/application/pipeline"
	"ytaudio-bot/domain/chat"
	"ytaudio-bot/infrastructure/telegram"

	"github.com/cucumber/godog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeBot implements telegram.BotAPI and records outgoing messages
type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {}

func (b *fakeBot) textsFor(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var texts []string
	for _, msg := range b.sent {
		if msg.ChatID == chatID {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

type chatContext struct {
	bot      *fakeBot
	adapter  *telegram.Adapter
	mu       sync.Mutex
	received []chat.InboundRequest
}

var SharedChatContext = &chatContext{}

func InitializeChatScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedChatContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.bot = nil
		testCtx.adapter = nil
		testCtx.received = nil
		return c, nil
	})

	ctx.Step(`^the bot is running$`, testCtx.theBotIsRunning)
	ctx.Step(`^the bot is running for chats "([^"]*)"$`, testCtx.theBotIsRunningForChats)
	ctx.Step(`^chat "([^"]*)" sends the command "([^"]*)"$`, testCtx.chatSendsTheCommand)
	ctx.Step(`^chat "([^"]*)" sends the text "([^"]*)"$`, testCtx.chatSendsTheText)
	ctx.Step(`^chat "([^"]*)" receives the replies "([^"]*)"$`, testCtx.chatReceivesTheReplies)
	ctx.Step(`^no request reaches the pipeline$`, testCtx.noRequestReachesThePipeline)
	ctx.Step(`^the pipeline receives "([^"]*)" from chat "([^"]*)"$`, testCtx.thePipelineReceivesFromChat)
}

func (c *chatContext) theBotIsRunning() error {
	return c.start(nil)
}

func (c *chatContext) theBotIsRunningForChats(list string) error {
	var allowed []int64
	for _, raw := range strings.Split(list, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return err
		}
		allowed = append(allowed, id)
	}
	return c.start(allowed)
}

func (c *chatContext) start(allowed []int64) error {
	m := pipeline.DefaultMessages()
	c.bot = &fakeBot{updates: make(chan tgbotapi.Update, 1)}

	adapter, err := telegram.NewAdapter(telegram.Config{
		AllowedChats: allowed,
		Replies: telegram.Replies{
			Greeting:       m.Greeting,
			Unauthorized:   m.Unauthorized,
			UnknownCommand: m.UnknownCommand,
			Unavailable:    m.GenericError,
		},
	}, telegram.WithBotAPI(c.bot))
	if err != nil {
		return err
	}
	c.adapter = adapter
	return nil
}

// deliver feeds one update to the adapter and waits until it has been handled
func (c *chatContext) deliver(update tgbotapi.Update) error {
	if c.adapter == nil {
		return fmt.Errorf("the bot is not running")
	}

	done := make(chan error, 1)
	go func() {
		done <- c.adapter.Run(context.Background(), c.handle)
	}()

	c.bot.updates <- update
	close(c.bot.updates)

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("adapter did not finish handling the update")
	}
}

func (c *chatContext) handle(ctx context.Context, req chat.InboundRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, req)
	return nil
}

func message(sessionID, text string) (tgbotapi.Update, error) {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return tgbotapi.Update{}, err
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Date: int(time.Now().Unix()),
	}}, nil
}

func (c *chatContext) chatSendsTheCommand(sessionID, command string) error {
	update, err := message(sessionID, command)
	if err != nil {
		return err
	}
	name := strings.Fields(command)[0]
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	return c.deliver(update)
}

func (c *chatContext) chatSendsTheText(sessionID, text string) error {
	update, err := message(sessionID, text)
	if err != nil {
		return err
	}
	return c.deliver(update)
}

// chatReceivesTheReplies checks the Telegram replies when the bot runs in this
// scenario and the pipeline replies otherwise
func (c *chatContext) chatReceivesTheReplies(sessionID, names string) error {
	if c.bot == nil {
		messenger := SharedPipelineContext.messenger
		messenger.mu.Lock()
		defer messenger.mu.Unlock()
		return expectReplies(messenger.texts[sessionID], names)
	}

	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return err
	}
	return expectReplies(c.bot.textsFor(chatID), names)
}

func (c *chatContext) noRequestReachesThePipeline() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.received) != 0 {
		return fmt.Errorf("expected no requests, got %d", len(c.received))
	}
	return nil
}

func (c *chatContext) thePipelineReceivesFromChat(text, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.received) != 1 {
		return fmt.Errorf("expected one request, got %d", len(c.received))
	}
	req := c.received[0]
	if req.SessionID != sessionID || req.Text != text {
		return fmt.Errorf("expected %q from chat %s, got %q from chat %s", text, sessionID, req.Text, req.SessionID)
	}
	if req.ID == "" {
		return fmt.Errorf("request has no id")
	}
	return nil
}
