package memory

import (
	"Campus/internal/model"
	"Campus/internal/repo"
	"context"
	"sort"
	"sync"
)

type TypingRepository struct {
	mu      sync.Mutex
	opts    options
	signals map[string]map[string]model.TypingSignal // conversation -> user -> signal
	subs    subscribers[[]model.TypingSignal]
}

var _ repo.TypingRepository = (*TypingRepository)(nil)

func NewTypingRepository(opts ...Option) *TypingRepository {
	return &TypingRepository{
		opts:    buildOptions(opts),
		signals: make(map[string]map[string]model.TypingSignal),
		subs:    make(subscribers[[]model.TypingSignal]),
	}
}

func (r *TypingRepository) Upsert(_ context.Context, conversationID, userID string, typing bool) (*model.TypingSignal, error) {
	if conversationID == "" {
		return nil, repo.ErrInvalidConversationID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.signals[conversationID]
	if !ok {
		users = make(map[string]model.TypingSignal)
		r.signals[conversationID] = users
	}

	signal := model.TypingSignal{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
		UpdatedAt:      r.opts.now(),
	}
	users[userID] = signal

	if _, ok := r.subs[conversationID]; ok {
		r.subs.publish(conversationID, r.snapshot(conversationID))
	}
	return &signal, nil
}

func (r *TypingRepository) List(_ context.Context, conversationID string) ([]model.TypingSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(conversationID), nil
}

func (r *TypingRepository) Subscribe(ctx context.Context, conversationID string) (*repo.Feed[[]model.TypingSignal], error) {
	if conversationID == "" {
		return nil, repo.ErrInvalidConversationID
	}

	feed := repo.NewFeed[[]model.TypingSignal](ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	feed.Publish(r.snapshot(conversationID))
	r.subs.add(conversationID, feed)
	return feed, nil
}

// snapshot is ordered by user id, like the Mongo query.
func (r *TypingRepository) snapshot(conversationID string) []model.TypingSignal {
	users := r.signals[conversationID]
	out := make([]model.TypingSignal, 0, len(users))
	for _, s := range users {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
