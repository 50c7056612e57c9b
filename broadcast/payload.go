package broadcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/transport"
)

// Payload is the content of a broadcast: TextMessage or ReferenceCopy.
type Payload interface {
	// Kind names the payload variant for logs and metrics.
	Kind() string
	// Validate reports whether the payload can be delivered.
	Validate() error

	deliver(ctx context.Context, tr transport.Transport, to core.ChatID) error
}

// TextMessage is literal text with an optional keyboard.
type TextMessage struct {
	Text     string
	Keyboard transport.Keyboard
}

// Kind implements Payload.
func (TextMessage) Kind() string { return "text" }

// Validate implements Payload.
func (m TextMessage) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, ErrEmptyText)
	}
	return nil
}

func (m TextMessage) deliver(ctx context.Context, tr transport.Transport, to core.ChatID) error {
	_, err := tr.SendText(ctx, to, m.Text, m.Keyboard)
	return err
}

// ReferenceCopy re-sends an existing message without attribution.
type ReferenceCopy struct {
	FromChat core.ChatID
	Message  core.MessageID
}

// Kind implements Payload.
func (ReferenceCopy) Kind() string { return "copy" }

// Validate implements Payload.
func (c ReferenceCopy) Validate() error {
	if c.FromChat == 0 || c.Message <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, ErrMissingSource)
	}
	return nil
}

func (c ReferenceCopy) deliver(ctx context.Context, tr transport.Transport, to core.ChatID) error {
	_, err := tr.CopyMessage(ctx, to, c.FromChat, c.Message)
	return err
}
