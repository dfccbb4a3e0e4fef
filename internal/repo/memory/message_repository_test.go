package memory

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"Campus/internal/model"
	"Campus/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns the same instant until advanced.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const conv = "amara_brian"

func TestAppendAssignsServerFields(t *testing.T) {
	clock := newFixedClock()
	r := NewMessageRepository(WithClock(clock.Now))

	msg, err := r.Append(context.Background(), conv, "amara", "brian", "hi")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, clock.Now(), msg.CreatedAt)
	assert.Equal(t, model.DeliverySent, msg.DeliveryState)
	assert.Equal(t, int64(1), msg.Seq)
}

func TestAppendRejectsMissingParticipants(t *testing.T) {
	r := NewMessageRepository()

	_, err := r.Append(context.Background(), conv, "", "brian", "hi")
	assert.ErrorIs(t, err, repo.ErrInvalidMessage)

	_, err = r.Append(context.Background(), "", "amara", "brian", "hi")
	assert.ErrorIs(t, err, repo.ErrInvalidMessage)
}

func TestListOrdersEqualTimestampsByInsertion(t *testing.T) {
	clock := newFixedClock()
	r := NewMessageRepository(WithClock(clock.Now))
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := r.Append(ctx, conv, "amara", "brian", text)
		require.NoError(t, err)
	}
	clock.Advance(time.Second)
	_, err := r.Append(ctx, conv, "brian", "amara", "four")
	require.NoError(t, err)

	msgs, err := r.List(ctx, conv)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, texts)
}

func TestDeliveryStateNeverRegresses(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		r := NewMessageRepository()
		highest := map[string]model.DeliveryState{}

		for step := 0; step < 20; step++ {
			switch rng.Intn(3) {
			case 0:
				m, err := r.Append(ctx, conv, "amara", "brian", "x")
				require.NoError(t, err)
				highest[m.ID] = m.DeliveryState
			case 1:
				_, err := r.MarkDelivered(ctx, conv, "brian")
				require.NoError(t, err)
			case 2:
				_, err := r.MarkSeen(ctx, conv, "brian")
				require.NoError(t, err)
			}

			msgs, err := r.List(ctx, conv)
			require.NoError(t, err)
			for _, m := range msgs {
				assert.False(t, m.DeliveryState.Before(highest[m.ID]),
					"message %s regressed from %s to %s", m.ID, highest[m.ID], m.DeliveryState)
				highest[m.ID] = m.DeliveryState
			}
		}
	}
}

func TestMarksOnlyTouchReceiver(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	toBrian, err := r.Append(ctx, conv, "amara", "brian", "to brian")
	require.NoError(t, err)
	toAmara, err := r.Append(ctx, conv, "brian", "amara", "to amara")
	require.NoError(t, err)

	n, err := r.MarkSeen(ctx, conv, "brian")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := r.Get(ctx, toBrian.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliverySeen, got.DeliveryState)

	got, err = r.Get(ctx, toAmara.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliverySent, got.DeliveryState)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	_, err := r.Append(ctx, conv, "amara", "brian", "hi")
	require.NoError(t, err)

	n, err := r.MarkSeen(ctx, conv, "brian")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	first, err := r.List(ctx, conv)
	require.NoError(t, err)

	n, err = r.MarkSeen(ctx, conv, "brian")
	require.NoError(t, err)
	assert.Zero(t, n)
	second, err := r.List(ctx, conv)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMarkDeliveredSkipsSeen(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	m, err := r.Append(ctx, conv, "amara", "brian", "hi")
	require.NoError(t, err)
	_, err = r.MarkSeen(ctx, conv, "brian")
	require.NoError(t, err)

	n, err := r.MarkDelivered(ctx, conv, "brian")
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := r.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliverySeen, got.DeliveryState)
}

func TestEditKeepsDeliveryState(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	m, err := r.Append(ctx, conv, "amara", "brian", "helo")
	require.NoError(t, err)
	_, err = r.MarkDelivered(ctx, conv, "brian")
	require.NoError(t, err)

	edited, err := r.Edit(ctx, m.ID, "amara", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Text)
	assert.NotNil(t, edited.EditedAt)

	got, err := r.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, model.DeliveryDelivered, got.DeliveryState)
}

func TestEditAndDeletePermissions(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	m, err := r.Append(ctx, conv, "amara", "brian", "hi")
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"edit by receiver", func() error { _, err := r.Edit(ctx, m.ID, "brian", "x"); return err }, repo.ErrNotMessageSender},
		{"edit unknown id", func() error { _, err := r.Edit(ctx, "missing", "amara", "x"); return err }, repo.ErrMessageNotFound},
		{"delete by outsider", func() error { _, err := r.Delete(ctx, m.ID, "chloe"); return err }, repo.ErrNotParticipant},
		{"delete unknown id", func() error { _, err := r.Delete(ctx, "missing", "amara"); return err }, repo.ErrMessageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	deleted, err := r.Delete(ctx, m.ID, "brian")
	require.NoError(t, err)
	assert.Equal(t, m.ID, deleted.ID)

	_, err = r.Get(ctx, m.ID)
	assert.ErrorIs(t, err, repo.ErrMessageNotFound)
}

func TestListPage(t *testing.T) {
	r := NewMessageRepository()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := r.Append(ctx, conv, "amara", "brian", "x")
		require.NoError(t, err)
	}

	page, err := r.ListPage(ctx, conv, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(20), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, int64(16), page.Data[0].Seq)

	page, err = r.ListPage(ctx, conv, 5)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestSubscribeDeliversOrderedSnapshots(t *testing.T) {
	clock := newFixedClock()
	r := NewMessageRepository(WithClock(clock.Now))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := r.Subscribe(ctx, conv)
	require.NoError(t, err)

	initial := <-feed.Updates()
	assert.Empty(t, initial)

	_, err = r.Append(ctx, conv, "amara", "brian", "first")
	require.NoError(t, err)
	clock.Advance(time.Millisecond)
	_, err = r.Append(ctx, conv, "brian", "amara", "second")
	require.NoError(t, err)

	var latest []model.Message
	require.Eventually(t, func() bool {
		select {
		case latest = <-feed.Updates():
		default:
		}
		return len(latest) == 2
	}, time.Second, 5*time.Millisecond)

	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].CreatedAt.Before(latest[i-1].CreatedAt))
	}

	// another conversation never reaches this feed
	_, err = r.Append(ctx, "brian_chloe", "chloe", "brian", "elsewhere")
	require.NoError(t, err)
	select {
	case snap := <-feed.Updates():
		t.Fatalf("unexpected snapshot %v", snap)
	default:
	}
}

func TestSubscribeStopsAfterCancel(t *testing.T) {
	r := NewMessageRepository()
	ctx, cancel := context.WithCancel(context.Background())

	feed, err := r.Subscribe(ctx, conv)
	require.NoError(t, err)
	<-feed.Updates()

	cancel()
	select {
	case _, ok := <-feed.Updates():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("feed still open after cancel")
	}

	_, err = r.Append(context.Background(), conv, "amara", "brian", "late")
	require.NoError(t, err)
	assert.NoError(t, feed.Err())
}
