package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydesk/internal/model/convo"
)

func TestStoreGetOrCreateIsIdempotent(t *testing.T) {
	store := NewStore(20, 6)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)
	assert.Equal(t, convo.StageNew, first.Stage)
	assert.Equal(t, int64(1), first.Version)

	again, err := store.GetOrCreate(ctx, "sess-1", "cust-other", "skydesk", convo.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", again.CustomerID, "existing session must not be overwritten")
	assert.Equal(t, convo.ChannelWeb, again.Channel)
}

func TestStoreCommitRejectsStaleVersion(t *testing.T) {
	store := NewStore(20, 6)
	ctx := context.Background()

	snap, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)

	stale := snap.Clone()

	snap.Stage = convo.StageResolving
	committed, err := store.Commit(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, int64(2), committed.Version)

	stale.Stage = convo.StageResolved
	_, err = store.Commit(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	current, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, convo.StageResolving, current.Stage)
}

func TestStoreCommitTrimsWindows(t *testing.T) {
	store := NewStore(3, 2)
	ctx := context.Background()

	snap, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		snap.Turns = append(snap.Turns, convo.TurnRecord{Seq: int64(i), CustomerText: "hello"})
		snap.SentimentTrend = append(snap.SentimentTrend, float64(i))
		snap, err = store.Commit(ctx, snap)
		require.NoError(t, err)
	}

	assert.Len(t, snap.Turns, 3)
	assert.Equal(t, int64(2), snap.Turns[0].Seq, "oldest turns are evicted first")
	assert.Len(t, snap.SentimentTrend, 2)
	assert.Equal(t, []float64{3, 4}, snap.SentimentTrend)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewStore(20, 6)
	ctx := context.Background()

	snap, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)

	snap.Entities["bookingRef"] = "AB12CD"

	fresh, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Entity("bookingRef"), "mutating a snapshot must not touch the store")
}

func TestLocksSerializePerSession(t *testing.T) {
	locks := NewLocks()

	var mu sync.Mutex
	order := make([]int, 0, 4)
	record := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	release := locks.Acquire("sess-1")
	record(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		release := locks.Acquire("sess-1")
		record(3)
		release()
	}()

	// A different session is not blocked by sess-1's lock.
	other := locks.Acquire("sess-2")
	record(2)
	other()

	release()
	<-done

	assert.Equal(t, []int{1, 2, 3}, order)
}
