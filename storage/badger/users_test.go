package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_TouchCreatesOnce(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	first, err := repos.Users.TouchUser(ctx, 42, "Rafi")
	require.NoError(t, err)
	assert.Equal(t, core.UserID(42), first.ID)
	assert.Equal(t, core.NotifyUnset, first.Notify)
	joined := first.JoinedAt

	second, err := repos.Users.TouchUser(ctx, 42, "Rafi Ahmed")
	require.NoError(t, err)
	assert.Equal(t, "Rafi Ahmed", second.DisplayName)
	assert.True(t, joined.Equal(second.JoinedAt))

	// An empty display name keeps the stored one.
	third, err := repos.Users.TouchUser(ctx, 42, "")
	require.NoError(t, err)
	assert.Equal(t, "Rafi Ahmed", third.DisplayName)

	count, err := repos.Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUsers_RecordSearch(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Users.RecordSearch(ctx, 9, "Mina", at))

	user, err := repos.Users.GetUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Mina", user.DisplayName)
	assert.True(t, at.Equal(user.LastSearchAt))
	assert.False(t, user.JoinedAt.IsZero())
}

func TestUsers_GetMissing(t *testing.T) {
	repos := setupTestRepositories(t)

	_, err := repos.Users.GetUser(context.Background(), 1)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUsers_SetNotify(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	require.NoError(t, repos.Users.SetNotify(ctx, 5, core.NotifyOff))
	user, err := repos.Users.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, core.NotifyOff, user.Notify)

	err = repos.Users.SetNotify(ctx, 5, core.NotifyPreference(99))
	assert.True(t, errors.Is(err, core.ErrInvalidNotifyPreference))
}

func TestUsers_SetNotifyAllAndFilter(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	const total = 250
	for i := 1; i <= total; i++ {
		_, err := repos.Users.TouchUser(ctx, core.UserID(i), "")
		require.NoError(t, err)
	}

	updated, err := repos.Users.SetNotifyAll(ctx, core.NotifyOff)
	require.NoError(t, err)
	assert.Equal(t, total, updated)

	enabled, err := repos.Users.ListUserIDs(ctx, storage.NotifyEnabled)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, repos.Users.SetNotify(ctx, 17, core.NotifyOn))
	enabled, err = repos.Users.ListUserIDs(ctx, storage.NotifyEnabled)
	require.NoError(t, err)
	assert.Equal(t, []core.UserID{17}, enabled)

	all, err := repos.Users.ListUserIDs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, total)
}

func TestUsers_SetNotifyAllKeepsConcurrentUpdates(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	const total = 300
	for i := 1; i <= total; i++ {
		_, err := repos.Users.TouchUser(ctx, core.UserID(i), "")
		require.NoError(t, err)
	}

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := repos.Users.SetNotifyAll(ctx, core.NotifyOff)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= total; i++ {
			assert.NoError(t, repos.Users.RecordSearch(ctx, core.UserID(i), "", at))
		}
	}()
	wg.Wait()

	for i := 1; i <= total; i++ {
		user, err := repos.Users.GetUser(ctx, core.UserID(i))
		require.NoError(t, err)
		assert.Equal(t, core.NotifyOff, user.Notify, "user %d", i)
		assert.True(t, at.Equal(user.LastSearchAt), "user %d lost its search time", i)
	}
}

func TestUsers_ForEachUserPages(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	for i := 1; i <= 23; i++ {
		_, err := repos.Users.TouchUser(ctx, core.UserID(i), "")
		require.NoError(t, err)
	}

	var sizes []int
	var seen []core.UserID
	err := repos.Users.ForEachUser(ctx, 10, func(users []*core.UserProfile) error {
		sizes = append(sizes, len(users))
		for _, u := range users {
			seen = append(seen, u.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
	require.Len(t, seen, 23)
	for i, id := range seen {
		assert.Equal(t, core.UserID(i+1), id)
	}
}

func TestUsers_ForEachUserStopsOnError(t *testing.T) {
	repos := setupTestRepositories(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := repos.Users.TouchUser(ctx, core.UserID(i), "")
		require.NoError(t, err)
	}

	stop := errors.New("stop")
	calls := 0
	err := repos.Users.ForEachUser(ctx, 2, func(users []*core.UserProfile) error {
		calls++
		return stop
	})
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 1, calls)
}

func TestUsers_ForEachUserHonorsCancellation(t *testing.T) {
	repos := setupTestRepositories(t)

	_, err := repos.Users.TouchUser(context.Background(), 1, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = repos.Users.ForEachUser(ctx, 10, func(users []*core.UserProfile) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}
