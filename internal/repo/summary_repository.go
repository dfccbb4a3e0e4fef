package repo

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type summaryDocument struct {
	ID                string `bson:"_id"`
	model.ChatSummary `bson:",inline"`
}

func summaryKey(ownerID, peerID string) string {
	return ownerID + "|" + peerID
}

type summaryRepository struct {
	mongoRepo *db.Repository[summaryDocument]
	logger    *zap.Logger
}

func NewSummaryRepository(con *mongo.Database, collection string, logger *zap.Logger) SummaryRepository {
	return &summaryRepository{
		mongoRepo: db.NewRepository[summaryDocument](con, collection),
		logger:    logger,
	}
}

func (r *summaryRepository) Upsert(ctx context.Context, summary model.ChatSummary) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	key := summaryKey(summary.OwnerID, summary.PeerID)
	_, err := r.mongoRepo.Upsert(ctx, bson.M{"_id": key}, summaryDocument{ID: key, ChatSummary: summary})
	if err != nil {
		r.logger.Error("failed to upsert chat summary",
			zap.String("owner_id", summary.OwnerID),
			zap.String("peer_id", summary.PeerID),
			zap.Error(err),
		)
		return fmt.Errorf("upsert chat summary: %w", err)
	}
	return nil
}

func (r *summaryRepository) Remove(ctx context.Context, ownerID, peerID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.mongoRepo.Delete(ctx, bson.M{"_id": summaryKey(ownerID, peerID)}); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("remove chat summary: %w", err)
	}
	return nil
}

func (r *summaryRepository) List(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	docs, err := readWithRetry(ctx, r.logger, "list chat summaries", func(ctx context.Context) ([]summaryDocument, error) {
		return r.mongoRepo.FindAll(ctx, db.NewFilter().Eq("owner_id", ownerID).Build(), bson.D{{Key: "last_at", Value: -1}})
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ChatSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, d.ChatSummary)
	}
	return summaries, nil
}
