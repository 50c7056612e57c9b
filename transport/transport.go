package transport

import (
	"context"

	"github.com/poiesic/reelbot/core"
)

// Choice is an inline button. A choice with a URL opens a link instead of
// producing a ChoiceSelected event.
type Choice struct {
	Label   string
	Payload string
	URL     string
}

// Keyboard is a grid of choices, one slice per row.
type Keyboard [][]Choice

// Column lays choices out one per row.
func Column(choices ...Choice) Keyboard {
	rows := make(Keyboard, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, []Choice{c})
	}
	return rows
}

// Transport sends outbound traffic to the chat platform.
// Implementations must be safe for concurrent use.
type Transport interface {
	// SendText sends a text message with an optional keyboard.
	SendText(ctx context.Context, chat core.ChatID, text string, keyboard Keyboard) (core.MessageID, error)

	// SendPhoto sends a picture with a caption and an optional keyboard.
	SendPhoto(ctx context.Context, chat core.ChatID, photo, caption string, keyboard Keyboard) (core.MessageID, error)

	// ForwardMessage forwards a message, keeping its origin attribution.
	ForwardMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error)

	// CopyMessage re-sends a message's content without attribution.
	CopyMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error)

	// DeleteMessage removes a message the bot sent.
	DeleteMessage(ctx context.Context, chat core.ChatID, message core.MessageID) error

	// AnswerChoice acknowledges a ChoiceSelected event. A non-empty text is
	// shown to the presser as a short notice.
	AnswerChoice(ctx context.Context, callbackID, text string) error
}
