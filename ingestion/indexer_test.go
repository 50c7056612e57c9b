package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage/badger"
	"github.com/poiesic/reelbot/transport"
	"github.com/poiesic/reelbot/transport/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos     *badger.Repositories
	transport *mock.MockTransport
	indexer   *Indexer
}

func setup(t *testing.T, opts ...Option) *fixture {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	tr := mock.NewMockTransport()
	fanout, err := broadcast.New(tr)
	require.NoError(t, err)
	t.Cleanup(fanout.Release)

	indexer, err := NewIndexer(repos.Catalog, repos.Users, repos.Settings, fanout, opts...)
	require.NoError(t, err)
	t.Cleanup(indexer.Release)

	return &fixture{repos: repos, transport: tr, indexer: indexer}
}

func post(id core.PostID, text string) transport.PostReceived {
	return transport.PostReceived{
		ID:            id,
		Text:          text,
		SourceChannel: -100123,
		Date:          time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}
}

func TestNewIndexer_Validation(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	_, err = NewIndexer(nil, repos.Users, repos.Settings, nil)
	assert.True(t, errors.Is(err, ErrCatalogRepositoryRequired))
	_, err = NewIndexer(repos.Catalog, repos.Users, repos.Settings, nil)
	assert.True(t, errors.Is(err, ErrFanoutRequired))
}

func TestIngest_Indexes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome, err := f.indexer.Ingest(ctx, post(7, "Inception 2010 English"))
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, outcome.Status)
	require.NotNil(t, outcome.Record)

	rec, err := f.repos.Catalog.GetRecord(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Inception 2010 English", rec.Title)
	assert.Equal(t, 2010, rec.Year)
	assert.Equal(t, core.LanguageEnglish, rec.Language)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), rec.CreatedAt)
}

func TestIngest_CaptionAndThumbnail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := transport.PostReceived{ID: 8, Caption: "Pather Panchali 1955 Bengali", ImageRef: "photo-file-id"}
	outcome, err := f.indexer.Ingest(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, outcome.Status)

	rec, err := f.repos.Catalog.GetRecord(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Pather Panchali 1955 Bengali", rec.Title)
	assert.Equal(t, core.LanguageBengali, rec.Language)
	assert.Equal(t, "photo-file-id", rec.Thumbnail)
}

func TestIngest_SkipsWithoutText(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome, err := f.indexer.Ingest(ctx, transport.PostReceived{ID: 9, ImageRef: "only-a-photo"})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonNoText, outcome.Reason)

	count, err := f.repos.Catalog.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngest_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.indexer.Ingest(ctx, post(7, "Inception 2010 English"))
	require.NoError(t, err)
	_, err = f.indexer.Ingest(ctx, post(7, "Inception 2010 Hindi dubbed"))
	require.NoError(t, err)

	count, err := f.repos.Catalog.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec, err := f.repos.Catalog.GetRecord(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, core.LanguageHindi, rec.Language)
}

func TestIngest_DerivationTable(t *testing.T) {
	tests := []struct {
		text     string
		year     int
		language core.Language
	}{
		{"Jawan (2023) Hindi 1080p", 2023, core.LanguageHindi},
		{"No year here english subs", 0, core.LanguageEnglish},
		{"Movie1999 bengali hindi", 1999, core.LanguageBengali},
		{"Film 1899 2101", 0, core.LanguageUnknown},
		{"Two years 2001 1995", 2001, core.LanguageUnknown},
	}

	f := setup(t)
	ctx := context.Background()
	for i, tt := range tests {
		outcome, err := f.indexer.Ingest(ctx, post(core.PostID(i+1), tt.text))
		require.NoError(t, err)
		assert.Equal(t, tt.year, outcome.Record.Year, tt.text)
		assert.Equal(t, tt.language, outcome.Record.Language, tt.text)
	}
}

func TestIngest_NoAnnouncementWhenGlobalNotifyOff(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.repos.Users.TouchUser(ctx, 1, "")
	require.NoError(t, err)

	_, err = f.indexer.Ingest(ctx, post(7, "Inception"))
	require.NoError(t, err)
	f.indexer.Wait()

	assert.Equal(t, 0, f.transport.CountOf(mock.KindText))
}

func TestIngest_AnnouncesToOptedInUsers(t *testing.T) {
	f := setup(t, WithExcerptLength(10))
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := f.repos.Users.TouchUser(ctx, core.UserID(i), "")
		require.NoError(t, err)
	}
	require.NoError(t, f.repos.Users.SetNotify(ctx, 2, core.NotifyOff))
	require.NoError(t, f.repos.Settings.SetFlag(ctx, core.SettingGlobalNotify, true))

	outcome, err := f.indexer.Ingest(ctx, post(7, "The Shawshank Redemption 1994 English\nsecond line"))
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, outcome.Status)

	assert.Eventually(t, func() bool {
		return f.transport.CountOf(mock.KindText) == 3
	}, time.Second, 5*time.Millisecond)

	var chats []core.ChatID
	for _, c := range f.transport.CallsOf(mock.KindText) {
		chats = append(chats, c.Chat)
		assert.Contains(t, c.Text, "The Shawsh\n")
		assert.NotContains(t, c.Text, "second line")
	}
	assert.ElementsMatch(t, []core.ChatID{1, 3, 4}, chats)
}

func TestIngest_AnnouncementFailuresDoNotFailIngest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.transport.SendTextFunc = func(ctx context.Context, chat core.ChatID, text string, kb transport.Keyboard) (core.MessageID, error) {
		return 0, errors.New("bot was blocked by the user")
	}

	_, err := f.repos.Users.TouchUser(ctx, 1, "")
	require.NoError(t, err)
	require.NoError(t, f.repos.Settings.SetFlag(ctx, core.SettingGlobalNotify, true))

	outcome, err := f.indexer.Ingest(ctx, post(7, "Inception"))
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, outcome.Status)
	f.indexer.Wait()
	assert.Equal(t, 1, f.transport.CountOf(mock.KindText))
}

func TestAnnouncementText(t *testing.T) {
	text := AnnouncementText(strings.Repeat("ক", 150)+"\nrest", 100)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, 100, len([]rune(lines[1])))
}
