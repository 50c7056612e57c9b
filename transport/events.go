package transport

import (
	"context"
	"time"

	"github.com/poiesic/reelbot/core"
)

// PostReceived is a post published to a channel the bot can see.
type PostReceived struct {
	ID            core.PostID
	Text          string
	Caption       string
	ImageRef      string // platform file reference of the attached picture, if any
	SourceChannel core.ChatID
	Date          time.Time
}

// ForwardOrigin describes where a forwarded message came from.
type ForwardOrigin struct {
	Chat      core.ChatID
	MessageID core.MessageID
	Date      time.Time
}

// TextReceived is a message sent to the bot.
type TextReceived struct {
	MessageID  core.MessageID
	Text       string
	Caption    string
	ImageRef   string
	SenderID   core.UserID
	SenderName string
	ChatID     core.ChatID

	// ReplyTo is set when the message replies to another message.
	ReplyTo *ReplyReference

	// Forward is set when the message was forwarded from a channel.
	Forward *ForwardOrigin
}

// ReplyReference points at the message being replied to.
type ReplyReference struct {
	Chat      core.ChatID
	MessageID core.MessageID
}

// Body returns the text of the message, or its caption when there is no text.
func (t TextReceived) Body() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Caption
}

// ChoiceSelected is emitted when an inline choice is pressed.
type ChoiceSelected struct {
	CallbackID      string
	Payload         string
	SenderID        core.UserID
	SenderName      string
	ChatID          core.ChatID
	PromptMessageID core.MessageID
}

// Handler consumes inbound events. Implementations must be safe for
// concurrent use; independent events may be delivered in parallel.
type Handler interface {
	HandlePost(ctx context.Context, post PostReceived)
	HandleText(ctx context.Context, msg TextReceived)
	HandleChoice(ctx context.Context, choice ChoiceSelected)
}
