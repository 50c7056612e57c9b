package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/ingestion"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

type command struct {
	name string
	args string
}

// parseCommand splits "/name@bot args" into name and args.
func parseCommand(text string) (command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return command{}, false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	name, _, _ := strings.Cut(head, "@")
	if name == "" {
		return command{}, false
	}
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}, true
}

type commandFunc func(h *Handler, ctx context.Context, msg transport.TextReceived, args string) string

var userCommands = map[string]commandFunc{
	"start":    (*Handler).cmdStart,
	"help":     (*Handler).cmdHelp,
	"feedback": (*Handler).cmdFeedback,
}

var adminCommands = map[string]commandFunc{
	"stats":          (*Handler).cmdStats,
	"delete_all":     (*Handler).cmdDeleteAll,
	"delete_movie":   (*Handler).cmdDeleteMovie,
	"broadcast":      (*Handler).cmdBroadcast,
	"notify":         (*Handler).cmdNotify,
	"globalnotify":   (*Handler).cmdGlobalNotify,
	"check_requests": (*Handler).cmdCheckRequests,
	"clear_requests": (*Handler).cmdClearRequests,
}

func (h *Handler) runCommand(ctx context.Context, msg transport.TextReceived, cmd command) {
	fn, ok := userCommands[cmd.name]
	if !ok {
		fn, ok = adminCommands[cmd.name]
		if ok && !h.IsOperator(msg.SenderID) {
			h.reply(ctx, msg.ChatID, msgAdminOnly, nil)
			return
		}
	}
	if !ok {
		h.reply(ctx, msg.ChatID, msgUnknownCommand, nil)
		return
	}

	h.logger.Debug("running command", "command", cmd.name, "user", msg.SenderID)
	if text := fn(h, ctx, msg, cmd.args); text != "" {
		h.reply(ctx, msg.ChatID, text, nil)
	}
}

func (h *Handler) cmdStart(ctx context.Context, msg transport.TextReceived, _ string) string {
	if _, err := h.Users.TouchUser(ctx, msg.SenderID, msg.SenderName); err != nil {
		h.logger.Warn("could not register user", "user", msg.SenderID, "err", err)
	}

	var links []transport.Choice
	if h.start.UpdateChannelURL != "" {
		links = append(links, transport.Choice{Label: labelUpdateChannel, URL: h.start.UpdateChannelURL})
	}
	if h.start.ContactURL != "" {
		links = append(links, transport.Choice{Label: labelContactAdmin, URL: h.start.ContactURL})
	}
	kb := transport.Column(links...)

	if h.start.PictureURL != "" {
		_, err := h.Transport.SendPhoto(ctx, msg.ChatID, h.start.PictureURL, msgStartCaption, kb)
		if err == nil {
			return ""
		}
		h.logger.Warn("could not send start picture", "err", err)
	}
	h.reply(ctx, msg.ChatID, msgStartCaption, kb)
	return ""
}

func (h *Handler) cmdHelp(ctx context.Context, msg transport.TextReceived, _ string) string {
	if h.IsOperator(msg.SenderID) {
		return adminHelp
	}
	return userHelp
}

func (h *Handler) cmdFeedback(ctx context.Context, msg transport.TextReceived, args string) string {
	if args == "" {
		return msgFeedbackUsage
	}
	err := h.Feedback.AddFeedback(ctx, &core.Feedback{User: msg.SenderID, Text: args})
	if err != nil {
		h.logger.Error("could not store feedback", "user", msg.SenderID, "err", err)
		return msgInternalError
	}
	return msgFeedbackThanks
}

func (h *Handler) cmdStats(ctx context.Context, _ transport.TextReceived, _ string) string {
	users, err1 := h.Users.CountUsers(ctx)
	movies, err2 := h.Catalog.CountRecords(ctx)
	feedback, err3 := h.Feedback.CountFeedback(ctx)
	requests, err4 := h.Escalations.CountEscalations(ctx)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		h.logger.Error("could not collect stats", "err", err)
		return msgInternalError
	}
	return fmt.Sprintf(msgStats, users, movies, feedback, requests)
}

func (h *Handler) cmdDeleteAll(ctx context.Context, _ transport.TextReceived, _ string) string {
	n, err := h.Catalog.DeleteAllRecords(ctx)
	if err != nil {
		h.logger.Error("could not clear catalog", "err", err)
		return msgInternalError
	}
	h.logger.Info("catalog cleared", "records", n)
	return fmt.Sprintf(msgDeleteAllDone, n)
}

func (h *Handler) cmdDeleteMovie(ctx context.Context, _ transport.TextReceived, args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return msgDeleteUsage
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return msgDeleteUsage
	}
	if err := h.Catalog.DeleteRecord(ctx, core.PostID(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return msgMovieNotFound
		}
		h.logger.Error("could not delete record", "record", id, "err", err)
		return msgInternalError
	}
	return msgDeleteDone
}

func (h *Handler) cmdBroadcast(ctx context.Context, msg transport.TextReceived, args string) string {
	var payload broadcast.Payload
	switch {
	case msg.ReplyTo != nil:
		payload = broadcast.ReferenceCopy{FromChat: msg.ReplyTo.Chat, Message: msg.ReplyTo.MessageID}
	case args != "":
		payload = broadcast.TextMessage{Text: args}
	default:
		return msgBroadcastUsage
	}

	tally, err := h.Fanout.BroadcastToRegistry(ctx, payload, h.Users, nil)
	if err != nil {
		if errors.Is(err, broadcast.ErrInvalidPayload) {
			return msgBroadcastUsage
		}
		h.logger.Error("broadcast failed", "err", err)
		return msgInternalError
	}
	return fmt.Sprintf(msgBroadcastDone, tally.Success, tally.Failure)
}

// parseSwitch reads an "on" or "off" argument.
func parseSwitch(args string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func switchLabel(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func (h *Handler) cmdNotify(ctx context.Context, _ transport.TextReceived, args string) string {
	on, ok := parseSwitch(args)
	if !ok {
		return msgNotifyUsage
	}
	pref := core.NotifyOff
	if on {
		pref = core.NotifyOn
	}
	n, err := h.Users.SetNotifyAll(ctx, pref)
	if err != nil {
		h.logger.Error("could not update notify flags", "err", err)
		return msgInternalError
	}
	return fmt.Sprintf(msgNotifyDone, switchLabel(on), n)
}

func (h *Handler) cmdGlobalNotify(ctx context.Context, _ transport.TextReceived, args string) string {
	on, ok := parseSwitch(args)
	if !ok {
		return msgGlobalUsage
	}
	if err := h.Settings.SetFlag(ctx, core.SettingGlobalNotify, on); err != nil {
		h.logger.Error("could not update global notify", "err", err)
		return msgInternalError
	}
	return fmt.Sprintf(msgGlobalDone, switchLabel(on))
}

func (h *Handler) cmdCheckRequests(ctx context.Context, _ transport.TextReceived, _ string) string {
	entries, err := h.Escalation.Pending(ctx)
	if err != nil {
		h.logger.Error("could not list requests", "err", err)
		return msgInternalError
	}
	if len(entries) == 0 {
		return msgNoRequests
	}

	var b strings.Builder
	fmt.Fprintf(&b, msgRequestsHeader, len(entries))
	for i, e := range entries {
		if i == maxRequestsListed {
			b.WriteString("\n")
			fmt.Fprintf(&b, msgRequestsMore, len(entries)-i)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s (%d users)", i+1, e.Query, len(e.Users))
	}
	return b.String()
}

func (h *Handler) cmdClearRequests(ctx context.Context, _ transport.TextReceived, _ string) string {
	n, err := h.Escalation.Clear(ctx)
	if err != nil {
		h.logger.Error("could not clear requests", "err", err)
		return msgInternalError
	}
	return fmt.Sprintf(msgRequestsCleared, n)
}

// indexForward indexes a source channel post forwarded by an operator.
func (h *Handler) indexForward(ctx context.Context, msg transport.TextReceived) {
	if msg.Forward.Chat != h.source {
		h.reply(ctx, msg.ChatID, msgNotFromChannel, nil)
		return
	}

	id := core.PostID(msg.Forward.MessageID)
	if _, err := h.Catalog.GetRecord(ctx, id); err == nil {
		h.reply(ctx, msg.ChatID, msgAlreadyIndexed, nil)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("error checking catalog", "record", id, "err", err)
		h.reply(ctx, msg.ChatID, msgInternalError, nil)
		return
	}

	outcome, err := h.Indexer.Ingest(ctx, transport.PostReceived{
		ID:            id,
		Text:          msg.Text,
		Caption:       msg.Caption,
		ImageRef:      msg.ImageRef,
		SourceChannel: msg.Forward.Chat,
		Date:          msg.Forward.Date,
	})
	switch {
	case err != nil:
		h.logger.Error("error indexing forwarded post", "record", id, "err", err)
		h.reply(ctx, msg.ChatID, msgInternalError, nil)
	case outcome.Status == ingestion.StatusSkipped:
		h.reply(ctx, msg.ChatID, msgForwardNoText, nil)
	default:
		h.reply(ctx, msg.ChatID, fmt.Sprintf(msgIndexedManually, core.Excerpt(outcome.Record.Title, maxChoiceLabelRunes)), nil)
	}
}
