package config

import "errors"

var (
	// ErrMissingSecret is returned when a required secret is not configured
	ErrMissingSecret = errors.New("missing required secret")

	// ErrChatNotAllowed is returned when removing a chat that is not on the allow list
	ErrChatNotAllowed = errors.New("chat is not on the allow list")

	// ErrChatAlreadyAllowed is returned when adding a chat twice
	ErrChatAlreadyAllowed = errors.New("chat is already on the allow list")
)
