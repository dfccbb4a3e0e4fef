// Package presence tracks ephemeral "user is typing" signals.
package presence

import (
	"Campus/internal/model"
	"Campus/internal/repo"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Tracker publishes and observes typing signals. Signals are scoped to one
// conversation; there is no server-side expiry. Readers hide signals older
// than staleAfter when it is set, which bounds how long a crashed client's
// flag stays visible without deleting anything.
type Tracker struct {
	repo       repo.TypingRepository
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewTracker(typing repo.TypingRepository, staleAfter time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		repo:       typing,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// SetTyping records the user's flag for the conversation. Last write wins.
func (t *Tracker) SetTyping(ctx context.Context, userID, conversationID string, typing bool) error {
	if _, err := t.repo.Upsert(ctx, conversationID, userID, typing); err != nil {
		t.logger.Warn("failed to set typing",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

// Typing returns the users currently typing in the conversation, excluding
// exceptUserID (usually the reader).
func (t *Tracker) Typing(ctx context.Context, conversationID, exceptUserID string) ([]model.TypingSignal, error) {
	signals, err := t.repo.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return t.Active(signals, exceptUserID), nil
}

// Active filters a snapshot down to live typing signals.
func (t *Tracker) Active(signals []model.TypingSignal, exceptUserID string) []model.TypingSignal {
	var cutoff time.Time
	if t.staleAfter > 0 {
		cutoff = t.now().Add(-t.staleAfter)
	}

	active := make([]model.TypingSignal, 0, len(signals))
	for _, s := range signals {
		if !s.Typing || s.UserID == exceptUserID {
			continue
		}
		if !cutoff.IsZero() && s.UpdatedAt.Before(cutoff) {
			continue
		}
		active = append(active, s)
	}
	return active
}

// Subscribe returns the raw signal feed for the conversation. Use Active on
// each snapshot to get what should be shown.
func (t *Tracker) Subscribe(ctx context.Context, conversationID string) (*repo.Feed[[]model.TypingSignal], error) {
	return t.repo.Subscribe(ctx, conversationID)
}
