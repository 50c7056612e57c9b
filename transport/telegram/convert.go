package telegram

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/transport"
)

// PostFromMessage converts a channel post.
func PostFromMessage(msg *tgbotapi.Message) transport.PostReceived {
	post := transport.PostReceived{
		ID:       core.PostID(msg.MessageID),
		Text:     msg.Text,
		Caption:  msg.Caption,
		ImageRef: largestPhoto(msg.Photo),
		Date:     unixTime(msg.Date),
	}
	if msg.Chat != nil {
		post.SourceChannel = core.ChatID(msg.Chat.ID)
	}
	return post
}

// TextFromMessage converts a message sent to the bot.
func TextFromMessage(msg *tgbotapi.Message) transport.TextReceived {
	text := transport.TextReceived{
		MessageID: core.MessageID(msg.MessageID),
		Text:      msg.Text,
		Caption:   msg.Caption,
		ImageRef:  largestPhoto(msg.Photo),
	}
	if msg.From != nil {
		text.SenderID = core.UserID(msg.From.ID)
		text.SenderName = DisplayName(msg.From)
	}
	if msg.Chat != nil {
		text.ChatID = core.ChatID(msg.Chat.ID)
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.Chat != nil {
		text.ReplyTo = &transport.ReplyReference{
			Chat:      core.ChatID(reply.Chat.ID),
			MessageID: core.MessageID(reply.MessageID),
		}
	}
	if msg.ForwardFromChat != nil {
		text.Forward = &transport.ForwardOrigin{
			Chat:      core.ChatID(msg.ForwardFromChat.ID),
			MessageID: core.MessageID(msg.ForwardFromMessageID),
			Date:      unixTime(msg.ForwardDate),
		}
	}
	return text
}

// ChoiceFromCallback converts a button press.
func ChoiceFromCallback(cq *tgbotapi.CallbackQuery) transport.ChoiceSelected {
	choice := transport.ChoiceSelected{
		CallbackID: cq.ID,
		Payload:    cq.Data,
	}
	if cq.From != nil {
		choice.SenderID = core.UserID(cq.From.ID)
		choice.SenderName = DisplayName(cq.From)
	}
	if cq.Message != nil {
		choice.PromptMessageID = core.MessageID(cq.Message.MessageID)
		if cq.Message.Chat != nil {
			choice.ChatID = core.ChatID(cq.Message.Chat.ID)
		}
	}
	return choice
}

// DisplayName is the user's full name, falling back to the @username.
func DisplayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.UserName != "" {
		name = "@" + u.UserName
	}
	return name
}

func largestPhoto(sizes []tgbotapi.PhotoSize) string {
	if len(sizes) == 0 {
		return ""
	}
	return sizes[len(sizes)-1].FileID
}

func unixTime(sec int) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}

func photoFile(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tgbotapi.FileURL(ref)
	}
	return tgbotapi.FileID(ref)
}

func inlineMarkup(keyboard transport.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range keyboard {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, c := range row {
			if c.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(c.Label, c.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Payload))
			}
		}
		if len(buttons) > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
