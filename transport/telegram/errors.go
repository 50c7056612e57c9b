package telegram

import "errors"

var (
	// ErrTokenRequired is returned when no bot token is configured.
	ErrTokenRequired = errors.New("telegram bot token is required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
