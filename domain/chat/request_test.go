package chat

import (
	"testing"
	"time"
)

func TestNewInboundRequest(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		sessionID string
		text      string
		wantText  string
		wantErr   bool
	}{
		{name: "valid", sessionID: "42", text: "some query", wantText: "some query"},
		{name: "text is trimmed", sessionID: "42", text: "  some query\n", wantText: "some query"},
		{name: "missing session", sessionID: "", text: "some query", wantErr: true},
		{name: "blank text", sessionID: "42", text: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInboundRequest(tt.sessionID, tt.text, now)
			if tt.wantErr {
				if err == nil {
					t.Error("NewInboundRequest() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInboundRequest() unexpected error: %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.ID == "" {
				t.Error("ID is empty, want a generated request id")
			}
			if !got.ReceivedAt.Equal(now) {
				t.Errorf("ReceivedAt = %v, want %v", got.ReceivedAt, now)
			}
		})
	}
}

func TestNewInboundRequest_UniqueIDs(t *testing.T) {
	a, _ := NewInboundRequest("1", "x", time.Time{})
	b, _ := NewInboundRequest("1", "x", time.Time{})
	if a.ID == b.ID {
		t.Errorf("request ids collide: %q", a.ID)
	}
	if a.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should default to now")
	}
}
