package syncclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/subscription"
)

func nextSnapshot[T any](t *testing.T, w *Watch[T]) Snapshot[T] {
	t.Helper()
	select {
	case s, ok := <-w.Snapshots():
		require.True(t, ok, "stream closed: %v", w.Err())
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func TestWatchJourney(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := signedUpClient(t, ts, "watch@example.com")

	w, err := c.WatchJourney(ctx)
	require.NoError(t, err)
	defer w.Cancel()

	first := nextSnapshot(t, w)
	assert.False(t, first.Exists)

	st := progress.Reduce(progress.Initial(), progress.TogglePractice{Day: 3})
	_, err = c.PutJourney(ctx, FullPatch(st))
	require.NoError(t, err)

	next := nextSnapshot(t, w)
	require.True(t, next.Exists)
	assert.True(t, next.Data.DayRecords[3].DidPractice)
}

func TestWatchSubscription(t *testing.T) {
	ts := newTestServer(t)
	c := signedUpClient(t, ts, "watchsub@example.com")

	w, err := c.WatchSubscription(context.Background())
	require.NoError(t, err)
	defer w.Cancel()

	first := nextSnapshot(t, w)
	require.True(t, first.Exists)
	assert.Equal(t, subscription.StatusTrial, first.Data.View.Status)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.NoError(t, ts.Store.MarkSubscriptionActive(me.UserID, time.Now()))

	next := nextSnapshot(t, w)
	assert.True(t, next.Data.View.IsActivePaid)
}

func TestWatchCancelIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	c := signedUpClient(t, ts, "cancel@example.com")

	w, err := c.WatchJourney(context.Background())
	require.NoError(t, err)
	nextSnapshot(t, w)

	w.Cancel()
	w.Cancel()

	_, ok := <-w.Snapshots()
	assert.False(t, ok, "channel must be closed after Cancel")
	assert.NoError(t, w.Err())
}

func TestWatchContextCancel(t *testing.T) {
	ts := newTestServer(t)
	c := signedUpClient(t, ts, "ctx@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	w, err := c.WatchJourney(ctx)
	require.NoError(t, err)
	nextSnapshot(t, w)

	cancel()
	select {
	case _, ok := <-w.Snapshots():
		if ok {
			// A late snapshot may still be buffered; the next read must see the close.
			_, ok = <-w.Snapshots()
		}
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after context cancel")
	}
	w.Cancel()
}

func TestWatchEndsWhenServerCloses(t *testing.T) {
	ts := newTestServer(t)
	c := signedUpClient(t, ts, "closing@example.com")

	w, err := c.WatchJourney(context.Background())
	require.NoError(t, err)
	defer w.Cancel()
	nextSnapshot(t, w)

	ts.Store.Close()

	select {
	case _, ok := <-w.Snapshots():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after server close")
	}
	assert.Error(t, w.Err(), "going-away close should surface as an error")
}

func TestWatchRejectedKey(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL, "sutra_bogus", time.Second)

	_, err := c.WatchJourney(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
