package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/transport/mock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source core.ChatID = -100123

func newRelayer(t *testing.T, tr *mock.MockTransport, opts ...Option) *Relayer {
	r, err := New(tr, source, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, source)
	assert.True(t, errors.Is(err, ErrTransportRequired))

	_, err = New(mock.NewMockTransport(), 0)
	assert.True(t, errors.Is(err, ErrSourceRequired))
}

func TestRelay_ForwardsAndRetracts(t *testing.T) {
	tr := mock.NewMockTransport()
	m := metrics.New()
	r := newRelayer(t, tr, WithRetractionDelay(30*time.Millisecond), WithMetrics(m))

	rec := &core.CatalogRecord{ID: 7, Title: "Inception"}
	handle, err := r.Relay(context.Background(), rec, 42)
	require.NoError(t, err)

	forwards := tr.CallsOf(mock.KindForward)
	require.Len(t, forwards, 1)
	assert.Equal(t, core.ChatID(42), forwards[0].Chat)
	assert.Equal(t, source, forwards[0].From)
	assert.Equal(t, core.MessageID(7), forwards[0].Message)

	// Relay returned before the retraction ran.
	assert.Equal(t, 0, tr.CountOf(mock.KindDelete))
	assert.Equal(t, 1, r.Pending())

	assert.Eventually(t, func() bool {
		return tr.CountOf(mock.KindDelete) == 1 && r.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	deletes := tr.CallsOf(mock.KindDelete)
	assert.Equal(t, handle.Chat, deletes[0].Chat)
	assert.Equal(t, handle.Message, deletes[0].Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetractionsTotal.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestRelay_FailureSchedulesNothing(t *testing.T) {
	tr := mock.NewMockTransport()
	tr.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
		return 0, errors.New("message to forward not found")
	}
	r := newRelayer(t, tr, WithRetractionDelay(10*time.Millisecond))

	handle, err := r.Relay(context.Background(), &core.CatalogRecord{ID: 7, Title: "x"}, 42)
	assert.Nil(t, handle)
	assert.True(t, errors.Is(err, ErrRelayFailed))
	assert.Equal(t, 0, r.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, tr.CountOf(mock.KindDelete))
}

func TestRelay_RetractionFailureIsAbsorbed(t *testing.T) {
	tr := mock.NewMockTransport()
	tr.DeleteMessageFunc = func(ctx context.Context, chat core.ChatID, msg core.MessageID) error {
		return errors.New("message to delete not found")
	}
	m := metrics.New()
	r := newRelayer(t, tr, WithRetractionDelay(10*time.Millisecond), WithMetrics(m))

	_, err := r.Relay(context.Background(), &core.CatalogRecord{ID: 7, Title: "x"}, 42)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetractionsTotal.WithLabelValues(metrics.OutcomeFailure)))
}

func TestRelay_RetractionOutlivesCallerContext(t *testing.T) {
	tr := mock.NewMockTransport()
	r := newRelayer(t, tr, WithRetractionDelay(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := r.Relay(ctx, &core.CatalogRecord{ID: 3, Title: "x"}, 42)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool { return tr.CountOf(mock.KindDelete) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRelay_IndependentTimers(t *testing.T) {
	tr := mock.NewMockTransport()
	r := newRelayer(t, tr, WithRetractionDelay(20*time.Millisecond), WithWorkers(2))

	for i := 1; i <= 10; i++ {
		_, err := r.Relay(context.Background(), &core.CatalogRecord{ID: core.PostID(i), Title: "x"}, core.ChatID(100+i))
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool {
		return tr.CountOf(mock.KindDelete) == 10 && r.Pending() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRelay_NilRecord(t *testing.T) {
	r := newRelayer(t, mock.NewMockTransport())
	_, err := r.Relay(context.Background(), nil, 42)
	assert.True(t, errors.Is(err, ErrRelayFailed))
}
