package repo

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const messagePageSize = 15

// counter is a per-conversation sequence document
type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	counters  *db.Repository[counter]
	logger    *zap.Logger
	now       func() time.Time
}

func newMessageRepository(repo *db.Repository[model.Message], counters *db.Repository[counter], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		counters:  counters,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewMessageRepositoryFromDB wires the message and counter collections.
func NewMessageRepositoryFromDB(con *mongo.Database, messages, counters string, logger *zap.Logger) MessageRepository {
	return newMessageRepository(
		db.NewRepository[model.Message](con, messages),
		db.NewRepository[counter](con, counters),
		logger,
	)
}

// -----------------------------------------------------------------------------
// Append
// -----------------------------------------------------------------------------

func (m *messageRepository) Append(ctx context.Context, conversationID, senderID, receiverID, text string) (*model.Message, error) {
	if conversationID == "" || senderID == "" || receiverID == "" {
		return nil, ErrInvalidMessage
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	seq, err := m.nextSeq(ctx, "messages:"+conversationID)
	if err != nil {
		m.logger.Error("failed to allocate message sequence",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("allocate sequence: %w", err)
	}

	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		// Mongo keeps millisecond precision; truncate so the returned value matches the stored one
		CreatedAt:     m.now().Truncate(time.Millisecond),
		DeliveryState: model.DeliverySent,
		Seq:           seq,
	}

	if _, err := m.mongoRepo.Create(ctx, msg); err != nil {
		m.logger.Error("failed to insert message",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insert message failed: %w", err)
	}

	m.logger.Debug("message appended",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", conversationID),
		zap.Int64("seq", seq),
	)
	return &msg, nil
}

func (m *messageRepository) nextSeq(ctx context.Context, key string) (int64, error) {
	c, err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, true)
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (m *messageRepository) Get(ctx context.Context, messageID string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (m *messageRepository) List(ctx context.Context, conversationID string) ([]model.Message, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()
	return readWithRetry(ctx, m.logger, "list messages", func(ctx context.Context) ([]model.Message, error) {
		return m.mongoRepo.FindAll(ctx, filter, db.AscendingBy("created_at", "seq"))
	})
}

func (m *messageRepository) ListPage(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()

	m.logger.Debug("filtering messages",
		zap.String("conversation_id", conversationID),
		zap.Int64("page", page),
	)

	return readWithRetry(ctx, m.logger, "filter messages", func(ctx context.Context) (*db.PaginatedResult[model.Message], error) {
		return m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: messagePageSize,
			SortBy:   db.AscendingBy("created_at", "seq"),
		})
	})
}

// -----------------------------------------------------------------------------
// Delivery state
// -----------------------------------------------------------------------------

func (m *messageRepository) MarkDelivered(ctx context.Context, conversationID, receiverID string) (int64, error) {
	return m.advance(ctx, conversationID, receiverID, model.DeliveryDelivered)
}

func (m *messageRepository) MarkSeen(ctx context.Context, conversationID, receiverID string) (int64, error) {
	return m.advance(ctx, conversationID, receiverID, model.DeliverySeen)
}

// advance moves every message addressed to receiverID that is strictly
// before target to target. The state predicate makes it monotonic and idempotent.
func (m *messageRepository) advance(ctx context.Context, conversationID, receiverID string, target model.DeliveryState) (int64, error) {
	if conversationID == "" {
		return 0, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Eq("receiver_id", receiverID).
		In("delivery_state", model.StatesBefore(target)).
		Build()

	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"delivery_state": target})
	if err != nil {
		m.logger.Error("failed to advance delivery state",
			zap.String("conversation_id", conversationID),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("mark %s: %w", target, err)
	}

	if result.ModifiedCount > 0 {
		m.logger.Debug("delivery state advanced",
			zap.String("conversation_id", conversationID),
			zap.String("receiver_id", receiverID),
			zap.String("target", string(target)),
			zap.Int64("count", result.ModifiedCount),
		)
	}
	return result.ModifiedCount, nil
}

// -----------------------------------------------------------------------------
// Edit / Delete
// -----------------------------------------------------------------------------

func (m *messageRepository) Edit(ctx context.Context, messageID, senderID, text string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", messageID).Eq("sender_id", senderID).Build()
	update := bson.M{"$set": bson.M{
		"text":      text,
		"edited_at": m.now().Truncate(time.Millisecond),
	}}

	msg, err := m.mongoRepo.FindOneAndUpdate(ctx, filter, update, false)
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	return nil, m.explainMiss(ctx, messageID, ErrNotMessageSender)
}

func (m *messageRepository) Delete(ctx context.Context, messageID, requesterID string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", messageID).
		Or(bson.M{"sender_id": requesterID}, bson.M{"receiver_id": requesterID}).
		Build()

	msg, err := m.mongoRepo.FindOneAndDelete(ctx, filter)
	if err == nil {
		m.logger.Info("message deleted",
			zap.String("message_id", messageID),
			zap.String("conversation_id", msg.ConversationID),
		)
		return msg, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	return nil, m.explainMiss(ctx, messageID, ErrNotParticipant)
}

// explainMiss tells a missing message apart from one the caller may not touch.
func (m *messageRepository) explainMiss(ctx context.Context, messageID string, denied error) error {
	exists, err := m.mongoRepo.Exists(ctx, bson.M{"_id": messageID})
	if err != nil {
		return fmt.Errorf("existence check failed: %w", err)
	}
	if exists {
		return denied
	}
	return ErrMessageNotFound
}

// -----------------------------------------------------------------------------
// Live feed
// -----------------------------------------------------------------------------

func (m *messageRepository) Subscribe(ctx context.Context, conversationID string) (*Feed[[]model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	feed := NewFeed[[]model.Message](ctx)
	err := watchQuery(feed, m.logger.With(zap.String("conversation_id", conversationID)),
		func(ctx context.Context) (*mongo.ChangeStream, error) {
			return m.mongoRepo.Watch(ctx, db.MatchChanges("conversation_id", conversationID))
		},
		func(ctx context.Context) ([]model.Message, error) {
			return m.List(ctx, conversationID)
		},
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}
