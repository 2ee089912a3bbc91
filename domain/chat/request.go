package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InboundRequest is a single text message waiting to be processed
type InboundRequest struct {
	ID         string
	SessionID  string
	Text       string
	ReceivedAt time.Time
}

// NewInboundRequest creates an InboundRequest with a fresh request ID
func NewInboundRequest(sessionID, text string, receivedAt time.Time) (InboundRequest, error) {
	if sessionID == "" {
		return InboundRequest{}, fmt.Errorf("chat session id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return InboundRequest{}, fmt.Errorf("message text is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return InboundRequest{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Text:       text,
		ReceivedAt: receivedAt,
	}, nil
}
