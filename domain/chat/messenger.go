package chat

import (
	"context"

	"ytaudio-bot/domain/audio"
)

// Messenger defines the outbound operations of a chat transport
// This is a port that can be implemented by different infrastructure adapters
type Messenger interface {
	// SendText sends a plain text message to a chat session
	SendText(ctx context.Context, sessionID string, text string) error

	// SendAudio sends an audio attachment to a chat session
	SendAudio(ctx context.Context, sessionID string, payload *audio.Payload) error
}

// ActivityNotifier is implemented by transports that can show the user that
// a reply is being prepared. The indication expires on its own, so callers
// renew it while the work runs.
type ActivityNotifier interface {
	NotifyActivity(ctx context.Context, sessionID string) error
}

// Handler processes inbound requests delivered by a chat transport
type Handler func(ctx context.Context, req InboundRequest) error

// Transport is a chat platform connection: it delivers inbound messages to a
// Handler and carries replies back
type Transport interface {
	Messenger

	// Run receives messages until ctx is done
	Run(ctx context.Context, handler Handler) error
}
