package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names the collections each repository is stored in.
type Collections struct {
	Messages   string
	Counters   string
	Typing     string
	Summaries  string
	Calls      string
	Candidates string
}

// EnsureIndexes creates the indexes the ordered reads and sweeps rely on.
func EnsureIndexes(ctx context.Context, con *mongo.Database, c Collections) error {
	specs := map[string][]mongo.IndexModel{
		c.Messages: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "delivery_state", Value: 1}}},
		},
		c.Typing: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		c.Summaries: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "last_at", Value: -1}}},
		},
		c.Calls: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		c.Candidates: {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "side", Value: 1}, {Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range specs {
		if _, err := con.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
