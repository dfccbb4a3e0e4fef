package repo

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// typingDocument keys a signal by (conversation, user)
type typingDocument struct {
	ID                 string `bson:"_id"`
	model.TypingSignal `bson:",inline"`
}

type typingRepository struct {
	mongoRepo *db.Repository[typingDocument]
	logger    *zap.Logger
}

func NewTypingRepository(con *mongo.Database, collection string, logger *zap.Logger) TypingRepository {
	return &typingRepository{
		mongoRepo: db.NewRepository[typingDocument](con, collection),
		logger:    logger,
	}
}

// Upsert is last-write-wins; updatedAt comes from the server clock.
func (r *typingRepository) Upsert(ctx context.Context, conversationID, userID string, typing bool) (*model.TypingSignal, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"conversation_id": conversationID,
		"user_id":         userID,
		"typing":          typing,
		"updated_at":      time.Now().UTC().Truncate(time.Millisecond),
	}}

	doc, err := r.mongoRepo.FindOneAndUpdate(ctx, bson.M{"_id": model.TypingKey(conversationID, userID)}, update, true)
	if err != nil {
		r.logger.Error("failed to upsert typing signal",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("upsert typing signal: %w", err)
	}
	return &doc.TypingSignal, nil
}

func (r *typingRepository) List(ctx context.Context, conversationID string) ([]model.TypingSignal, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	docs, err := readWithRetry(ctx, r.logger, "list typing signals", func(ctx context.Context) ([]typingDocument, error) {
		return r.mongoRepo.FindAll(ctx, db.NewFilter().Eq("conversation_id", conversationID).Build(), db.AscendingBy("user_id"))
	})
	if err != nil {
		return nil, err
	}

	signals := make([]model.TypingSignal, 0, len(docs))
	for _, d := range docs {
		signals = append(signals, d.TypingSignal)
	}
	return signals, nil
}

func (r *typingRepository) Subscribe(ctx context.Context, conversationID string) (*Feed[[]model.TypingSignal], error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	feed := NewFeed[[]model.TypingSignal](ctx)
	err := watchQuery(feed, r.logger.With(zap.String("conversation_id", conversationID)),
		func(ctx context.Context) (*mongo.ChangeStream, error) {
			return r.mongoRepo.Watch(ctx, db.MatchChanges("conversation_id", conversationID))
		},
		func(ctx context.Context) ([]model.TypingSignal, error) {
			return r.List(ctx, conversationID)
		},
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}
