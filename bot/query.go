package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/search"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

// query resolves msg as a search and presents the outcome.
func (h *Handler) query(ctx context.Context, msg transport.TextReceived) {
	res, err := h.Resolver.Resolve(ctx, msg.Body(), search.Requester{
		ID:          msg.SenderID,
		DisplayName: msg.SenderName,
		ChatID:      msg.ChatID,
	})
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			h.reply(ctx, msg.ChatID, msgEmptyQuery, nil)
			return
		}
		h.logger.Error("error resolving query", "user", msg.SenderID, "err", err)
		h.reply(ctx, msg.ChatID, msgInternalError, nil)
		return
	}

	if res.Outcome == search.OutcomeUnmatched {
		h.reply(ctx, msg.ChatID, msgNoResults, nil)
		return
	}
	h.present(ctx, msg.ChatID, res)
}

// present delivers matched records according to the match mode.
func (h *Handler) present(ctx context.Context, chat core.ChatID, res *search.Resolution) {
	switch {
	case h.mode == config.MatchAll:
		h.relayAll(ctx, chat, res.Records)
	case h.mode == config.MatchAuto && len(res.Records) == 1:
		h.relayOne(ctx, chat, res.Records[0])
	default:
		kb := resultKeyboard(res.Records)
		kb = append(kb, languageRow(res.Query))
		h.reply(ctx, chat, fmt.Sprintf(msgChooseResult, res.Query), kb)
	}
}

func (h *Handler) relayOne(ctx context.Context, chat core.ChatID, rec *core.CatalogRecord) bool {
	if _, err := h.Relayer.Relay(ctx, rec, chat); err != nil {
		h.reply(ctx, chat, msgRelayFailed, nil)
		return false
	}
	return true
}

// relayAll relays every record, pausing between relays to stay under the
// platform's flood limits. The requester is told when nothing got through.
func (h *Handler) relayAll(ctx context.Context, chat core.ChatID, records []*core.CatalogRecord) {
	relayed := 0
	defer func() {
		if relayed == 0 && len(records) > 0 {
			h.reply(ctx, chat, msgRelayFailed, nil)
		}
	}()

	for i, rec := range records {
		if i > 0 && h.relayInterval > 0 {
			timer := time.NewTimer(h.relayInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if _, err := h.Relayer.Relay(ctx, rec, chat); err != nil {
			h.logger.Warn("relay failed", "record", rec.ID, "chat", chat, "err", err)
			continue
		}
		relayed++
	}
}

func resultKeyboard(records []*core.CatalogRecord) transport.Keyboard {
	choices := make([]transport.Choice, 0, len(records))
	for _, rec := range records {
		choices = append(choices, transport.Choice{
			Label:   core.Excerpt(rec.Title, maxChoiceLabelRunes),
			Payload: moviePayload(rec.ID),
		})
	}
	return transport.Column(choices...)
}

func languageRow(query string) []transport.Choice {
	row := make([]transport.Choice, 0, len(core.KnownLanguages))
	for _, lang := range core.KnownLanguages {
		row = append(row, transport.Choice{Label: string(lang), Payload: languagePayload(lang, query)})
	}
	return row
}

// selectMovie relays a record picked from a choice list.
func (h *Handler) selectMovie(ctx context.Context, choice transport.ChoiceSelected, id core.PostID) {
	rec, err := h.Resolver.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("error looking up record", "record", id, "err", err)
		}
		h.answer(ctx, choice.CallbackID, msgMovieNotFound)
		return
	}
	if _, err := h.Relayer.Relay(ctx, rec, choice.ChatID); err != nil {
		h.answer(ctx, choice.CallbackID, msgRelayFailed)
		return
	}
	h.answer(ctx, choice.CallbackID, msgMovieSent)
}

// filterLanguage lists the matches of query in one language.
func (h *Handler) filterLanguage(ctx context.Context, choice transport.ChoiceSelected, language core.Language, query string) {
	records, err := h.Resolver.FindInLanguage(ctx, query, language)
	if err != nil {
		h.logger.Warn("error filtering by language", "language", language, "err", err)
		h.answer(ctx, choice.CallbackID, msgInternalError)
		return
	}
	if len(records) == 0 {
		h.answer(ctx, choice.CallbackID, msgNothingLanguage)
		return
	}
	h.reply(ctx, choice.ChatID, fmt.Sprintf(msgChooseLanguage, language, query), resultKeyboard(records))
	h.answer(ctx, choice.CallbackID, "")
}
