package repo

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"context"
	"time"
)

// MessageRepository is the authoritative, ordered message log. It owns
// delivery-state transitions, which only ever move forward.
type MessageRepository interface {
	// Append stores a new message in state sent. CreatedAt is assigned here.
	Append(ctx context.Context, conversationID, senderID, receiverID, text string) (*model.Message, error)
	Get(ctx context.Context, messageID string) (*model.Message, error)
	// List returns the conversation ordered by (createdAt, seq) ascending.
	List(ctx context.Context, conversationID string) ([]model.Message, error)
	ListPage(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	// MarkDelivered moves every sent message addressed to receiverID to delivered.
	MarkDelivered(ctx context.Context, conversationID, receiverID string) (int64, error)
	// MarkSeen moves every message addressed to receiverID that is not yet seen to seen.
	MarkSeen(ctx context.Context, conversationID, receiverID string) (int64, error)
	// Edit replaces the text of a message owned by senderID.
	Edit(ctx context.Context, messageID, senderID, text string) (*model.Message, error)
	// Delete hard-deletes a message on behalf of either participant.
	Delete(ctx context.Context, messageID, requesterID string) (*model.Message, error)
	Subscribe(ctx context.Context, conversationID string) (*Feed[[]model.Message], error)
}

// TypingRepository stores one typing signal per (conversation, user).
type TypingRepository interface {
	Upsert(ctx context.Context, conversationID, userID string, typing bool) (*model.TypingSignal, error)
	List(ctx context.Context, conversationID string) ([]model.TypingSignal, error)
	Subscribe(ctx context.Context, conversationID string) (*Feed[[]model.TypingSignal], error)
}

// SummaryRepository caches the inbox previews derived from the message log.
type SummaryRepository interface {
	Upsert(ctx context.Context, summary model.ChatSummary) error
	Remove(ctx context.Context, ownerID, peerID string) error
	// List returns the owner's summaries, most recent first.
	List(ctx context.Context, ownerID string) ([]model.ChatSummary, error)
}

// CallRepository stores call sessions and their two candidate sets.
type CallRepository interface {
	Create(ctx context.Context, session *model.CallSession) error
	Get(ctx context.Context, id string) (*model.CallSession, error)
	// SetAnswer publishes the answer once; the session becomes active.
	SetAnswer(ctx context.Context, id string, answer model.SessionDescription) (*model.CallSession, error)
	// AddCandidate appends to a candidate set and assigns its sequence number.
	AddCandidate(ctx context.Context, id string, side model.CandidateSide, init model.CandidateInit) (*model.Candidate, error)
	ListCandidates(ctx context.Context, id string, side model.CandidateSide) ([]model.Candidate, error)
	// Watch publishes the session on every change, and nil once it is deleted.
	Watch(ctx context.Context, id string) (*Feed[*model.CallSession], error)
	WatchCandidates(ctx context.Context, id string, side model.CandidateSide) (*Feed[[]model.Candidate], error)
	// Delete purges the session and both candidate sets.
	Delete(ctx context.Context, id string) error
	// ListStale returns unanswered negotiating sessions created before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]model.CallSession, error)
}
