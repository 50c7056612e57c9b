package relay

import "errors"

var (
	// ErrRelayFailed is returned when the source post could not be forwarded.
	ErrRelayFailed = errors.New("relay failed")

	// ErrTransportRequired is returned when creating a Relayer without a transport.
	ErrTransportRequired = errors.New("transport is required")

	// ErrSourceRequired is returned when creating a Relayer without a source channel.
	ErrSourceRequired = errors.New("source channel is required")
)
