package media

import "errors"

var (
	// ErrInvalidLink is returned when input looks like a link but no video matches it
	ErrInvalidLink = errors.New("invalid video link")

	// ErrNotFound is returned when a search yields no results
	ErrNotFound = errors.New("no video found for query")
)
