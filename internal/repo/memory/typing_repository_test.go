package memory

import (
	"context"
	"testing"
	"time"

	"Campus/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingIsScopedPerConversation(t *testing.T) {
	r := NewTypingRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := r.Subscribe(ctx, "amara_brian")
	require.NoError(t, err)
	assert.Empty(t, <-feed.Updates())

	_, err = r.Upsert(ctx, "brian_chloe", "brian", true)
	require.NoError(t, err)
	_, err = r.Upsert(ctx, "amara_brian", "amara", true)
	require.NoError(t, err)

	select {
	case signals := <-feed.Updates():
		require.Len(t, signals, 1)
		assert.Equal(t, "amara", signals[0].UserID)
		assert.True(t, signals[0].Typing)
	case <-time.After(time.Second):
		t.Fatal("no typing snapshot")
	}
}

func TestTypingLastWriteWins(t *testing.T) {
	r := NewTypingRepository()
	ctx := context.Background()

	_, err := r.Upsert(ctx, "amara_brian", "amara", true)
	require.NoError(t, err)
	_, err = r.Upsert(ctx, "amara_brian", "amara", false)
	require.NoError(t, err)

	signals, err := r.List(ctx, "amara_brian")
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.False(t, signals[0].Typing)
}

func TestSummariesMostRecentFirst(t *testing.T) {
	r := NewSummaryRepository()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, r.Upsert(ctx, summaryAt("amara", "brian", base)))
	require.NoError(t, r.Upsert(ctx, summaryAt("amara", "chloe", base.Add(time.Minute))))
	require.NoError(t, r.Upsert(ctx, summaryAt("brian", "amara", base)))

	list, err := r.List(ctx, "amara")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chloe", list[0].PeerID)
	assert.Equal(t, "brian", list[1].PeerID)

	require.NoError(t, r.Remove(ctx, "amara", "chloe"))
	list, err = r.List(ctx, "amara")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func summaryAt(owner, peer string, at time.Time) model.ChatSummary {
	return model.ChatSummary{OwnerID: owner, PeerID: peer, LastAt: at}
}
