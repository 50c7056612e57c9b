package broadcast

import "errors"

var (
	// ErrInvalidPayload is returned when a payload cannot be delivered to anyone.
	ErrInvalidPayload = errors.New("invalid broadcast payload")

	// ErrEmptyText is returned for a TextMessage without text.
	ErrEmptyText = errors.New("text message is empty")

	// ErrMissingSource is returned for a ReferenceCopy without a source message.
	ErrMissingSource = errors.New("reference copy requires a source message")

	// ErrTransportRequired is returned when creating a Fanout without a transport.
	ErrTransportRequired = errors.New("transport is required")
)
