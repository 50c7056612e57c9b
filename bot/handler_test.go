package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/escalation"
	"github.com/poiesic/reelbot/ingestion"
	"github.com/poiesic/reelbot/relay"
	"github.com/poiesic/reelbot/search"
	"github.com/poiesic/reelbot/storage/badger"
	"github.com/poiesic/reelbot/transport"
	"github.com/poiesic/reelbot/transport/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sourceChannel core.ChatID = -100500
	operatorID    core.UserID = 900
	userID        core.UserID = 42
)

type fixture struct {
	repos     *badger.Repositories
	transport *mock.MockTransport
	handler   *Handler
}

func setup(t *testing.T, opts ...Option) *fixture {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	tr := mock.NewMockTransport()
	fanout, err := broadcast.New(tr)
	require.NoError(t, err)
	t.Cleanup(fanout.Release)

	operators := []core.UserID{operatorID}
	workflow, err := escalation.New(repos.Escalations, fanout, tr, operators)
	require.NoError(t, err)

	resolver, err := search.NewResolver(repos.Catalog, repos.Users, workflow, search.WithResultLimit(10))
	require.NoError(t, err)

	relayer, err := relay.New(tr, sourceChannel, relay.WithRetractionDelay(time.Hour))
	require.NoError(t, err)
	t.Cleanup(relayer.Release)

	indexer, err := ingestion.NewIndexer(repos.Catalog, repos.Users, repos.Settings, fanout)
	require.NoError(t, err)
	t.Cleanup(indexer.Release)

	h, err := New(Deps{
		Transport:   tr,
		Indexer:     indexer,
		Resolver:    resolver,
		Relayer:     relayer,
		Escalation:  workflow,
		Fanout:      fanout,
		Catalog:     repos.Catalog,
		Users:       repos.Users,
		Escalations: repos.Escalations,
		Settings:    repos.Settings,
		Feedback:    repos.Feedback,
	}, sourceChannel, operators, opts...)
	require.NoError(t, err)

	return &fixture{repos: repos, transport: tr, handler: h}
}

func (f *fixture) post(t *testing.T, id core.PostID, text string) {
	f.handler.HandlePost(context.Background(), transport.PostReceived{ID: id, Text: text, SourceChannel: sourceChannel})
	_, err := f.repos.Catalog.GetRecord(context.Background(), id)
	require.NoError(t, err)
}

func (f *fixture) say(from core.UserID, text string) {
	f.handler.HandleText(context.Background(), transport.TextReceived{
		Text:       text,
		SenderID:   from,
		SenderName: fmt.Sprintf("user-%d", from),
		ChatID:     core.ChatID(from),
	})
}

func (f *fixture) press(from core.UserID, payload string) {
	f.handler.HandleChoice(context.Background(), transport.ChoiceSelected{
		CallbackID: "cb",
		Payload:    payload,
		SenderID:   from,
		ChatID:     core.ChatID(from),
	})
}

// lastText returns the last text sent to chat.
func (f *fixture) lastText(t *testing.T, chat core.ChatID) mock.Call {
	var last *mock.Call
	for _, c := range f.transport.CallsOf(mock.KindText) {
		if c.Chat == chat {
			c := c
			last = &c
		}
	}
	require.NotNil(t, last, "no text sent to %d", chat)
	return *last
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Deps{}, sourceChannel, nil)
	assert.True(t, errors.Is(err, ErrMissingDependency))
}

func TestHandlePost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.handler.HandlePost(ctx, transport.PostReceived{ID: 1, Text: "Inception 2010", SourceChannel: sourceChannel})
	f.handler.HandlePost(ctx, transport.PostReceived{ID: 2, Text: "Foreign post", SourceChannel: -999})

	count, err := f.repos.Catalog.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQuery_AutoSingleMatchRelays(t *testing.T) {
	f := setup(t)
	f.post(t, 7, "Inception 2010 English")

	f.say(userID, "inception")

	forwards := f.transport.CallsOf(mock.KindForward)
	require.Len(t, forwards, 1)
	assert.Equal(t, core.ChatID(userID), forwards[0].Chat)
	assert.Equal(t, sourceChannel, forwards[0].From)
	assert.Equal(t, core.MessageID(7), forwards[0].Message)
}

func TestQuery_AutoManyMatchesLists(t *testing.T) {
	f := setup(t)
	f.post(t, 1, "Batman Begins 2005")
	f.post(t, 2, "The Batman 2022 Hindi")

	f.say(userID, "batman")

	assert.Equal(t, 0, f.transport.CountOf(mock.KindForward))
	msg := f.lastText(t, core.ChatID(userID))
	require.Len(t, msg.Keyboard, 3)
	assert.Equal(t, "movie_1", msg.Keyboard[0][0].Payload)
	assert.Equal(t, "movie_2", msg.Keyboard[1][0].Payload)
	langRow := msg.Keyboard[2]
	require.Len(t, langRow, len(core.KnownLanguages))
	assert.Equal(t, "lang_Bengali_batman", langRow[0].Payload)
}

func TestQuery_ListModeAlwaysLists(t *testing.T) {
	f := setup(t, WithMatchMode(config.MatchList))
	f.post(t, 7, "Inception")

	f.say(userID, "inception")

	assert.Equal(t, 0, f.transport.CountOf(mock.KindForward))
	msg := f.lastText(t, core.ChatID(userID))
	assert.Equal(t, "movie_7", msg.Keyboard[0][0].Payload)
}

func TestQuery_AllModeRelaysEveryMatch(t *testing.T) {
	f := setup(t, WithMatchMode(config.MatchAll), WithRelayInterval(time.Millisecond))
	for i := 1; i <= 4; i++ {
		f.post(t, core.PostID(i), fmt.Sprintf("Saw %d", i))
	}

	f.say(userID, "saw")

	forwards := f.transport.CallsOf(mock.KindForward)
	require.Len(t, forwards, 4)
	for i, c := range forwards {
		assert.Equal(t, core.MessageID(i+1), c.Message)
	}
}

func TestQuery_UnmatchedEscalates(t *testing.T) {
	f := setup(t)

	f.say(userID, "Interstellar")

	assert.Equal(t, msgNoResults, f.lastText(t, core.ChatID(userID)).Text)
	notice := f.lastText(t, core.ChatID(operatorID))
	assert.Contains(t, notice.Text, "Interstellar")
	assert.Len(t, notice.Keyboard, 4)

	entry, err := f.repos.Escalations.GetEscalation(context.Background(), "interstellar")
	require.NoError(t, err)
	assert.Equal(t, []core.UserID{userID}, entry.Users)
}

func TestQuery_Empty(t *testing.T) {
	f := setup(t)

	f.handler.HandleText(context.Background(), transport.TextReceived{Caption: "", SenderID: userID, ChatID: core.ChatID(userID)})

	assert.Equal(t, msgEmptyQuery, f.lastText(t, core.ChatID(userID)).Text)
	count, err := f.repos.Escalations.CountEscalations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestQuery_RelayFailureIsReported(t *testing.T) {
	f := setup(t)
	f.post(t, 7, "Inception")
	f.transport.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
		return 0, errors.New("message to forward not found")
	}

	f.say(userID, "inception")

	assert.Equal(t, msgRelayFailed, f.lastText(t, core.ChatID(userID)).Text)
}

func TestQuery_AllModeReportsWhenEveryRelayFails(t *testing.T) {
	f := setup(t, WithMatchMode(config.MatchAll), WithRelayInterval(0))
	f.post(t, 1, "Inception 2010 English")
	f.post(t, 2, "Inception 2010 Hindi")
	f.transport.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
		return 0, errors.New("message to forward not found")
	}

	f.say(userID, "inception")

	assert.Equal(t, 2, f.transport.CountOf(mock.KindForward))
	assert.Equal(t, msgRelayFailed, f.lastText(t, core.ChatID(userID)).Text)
}

func TestQuery_AllModeQuietWhenSomeRelaySucceeds(t *testing.T) {
	f := setup(t, WithMatchMode(config.MatchAll), WithRelayInterval(0))
	f.post(t, 1, "Inception 2010 English")
	f.post(t, 2, "Inception 2010 Hindi")
	f.transport.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
		if msg == 1 {
			return 0, errors.New("message to forward not found")
		}
		return 900, nil
	}

	f.say(userID, "inception")

	assert.Equal(t, 0, f.transport.CountOf(mock.KindText))
}

func TestChoice_SelectMovie(t *testing.T) {
	f := setup(t)
	f.post(t, 7, "Inception")

	f.press(userID, "movie_7")
	f.press(userID, "movie_999")

	assert.Equal(t, 1, f.transport.CountOf(mock.KindForward))
	answers := f.transport.CallsOf(mock.KindAnswer)
	require.Len(t, answers, 2)
	assert.Equal(t, msgMovieSent, answers[0].Text)
	assert.Equal(t, msgMovieNotFound, answers[1].Text)
}

func TestChoice_LanguageFilter(t *testing.T) {
	f := setup(t)
	f.post(t, 1, "Inception 2010 English")
	f.post(t, 2, "Inception 2010 Hindi")

	f.press(userID, "lang_Hindi_inception")
	msg := f.lastText(t, core.ChatID(userID))
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, "movie_2", msg.Keyboard[0][0].Payload)

	f.press(userID, "lang_Bengali_inception")
	answers := f.transport.CallsOf(mock.KindAnswer)
	assert.Equal(t, msgNothingLanguage, answers[len(answers)-1].Text)
}

func TestChoice_EscalationAnswer(t *testing.T) {
	f := setup(t)

	f.press(operatorID, escalation.Payload(escalation.ActionSoon, userID))

	msg := f.lastText(t, core.ChatID(userID))
	assert.Contains(t, msg.Text, "added soon")
}

func TestChoice_UnknownIsAcknowledged(t *testing.T) {
	f := setup(t)

	f.press(userID, "garbage")

	assert.Equal(t, 1, f.transport.CountOf(mock.KindAnswer))
	assert.Equal(t, 0, f.transport.CountOf(mock.KindText))
}

func TestHandlerRecoversFromPanic(t *testing.T) {
	f := setup(t)
	f.post(t, 7, "Inception")
	f.transport.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
		panic("transport exploded")
	}

	assert.NotPanics(t, func() { f.say(userID, "inception") })
	assert.Equal(t, msgInternalError, f.lastText(t, core.ChatID(userID)).Text)

	assert.NotPanics(t, func() { f.press(userID, "movie_7") })
}

func TestForwardToIndex(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	forward := func(from core.UserID, chat core.ChatID, id core.MessageID, text string) {
		f.handler.HandleText(ctx, transport.TextReceived{
			Caption:  text,
			SenderID: from,
			ChatID:   core.ChatID(from),
			Forward:  &transport.ForwardOrigin{Chat: chat, MessageID: id},
		})
	}

	forward(operatorID, sourceChannel, 31, "Tenet 2020 English")
	assert.True(t, strings.HasPrefix(f.lastText(t, core.ChatID(operatorID)).Text, "Indexed: Tenet"))
	rec, err := f.repos.Catalog.GetRecord(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, 2020, rec.Year)

	forward(operatorID, sourceChannel, 31, "Tenet 2020 English")
	assert.Equal(t, msgAlreadyIndexed, f.lastText(t, core.ChatID(operatorID)).Text)

	forward(operatorID, -777, 32, "Other")
	assert.Equal(t, msgNotFromChannel, f.lastText(t, core.ChatID(operatorID)).Text)

	forward(operatorID, sourceChannel, 33, "")
	assert.Equal(t, msgForwardNoText, f.lastText(t, core.ChatID(operatorID)).Text)

	// A user forwarding a post is just searching for it.
	forward(userID, sourceChannel, 34, "Tenet")
	assert.Equal(t, 1, f.transport.CountOf(mock.KindForward))
	_, err = f.repos.Catalog.GetRecord(ctx, 34)
	assert.Error(t, err)
}
