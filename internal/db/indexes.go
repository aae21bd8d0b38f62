package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the chat queries rely on. Creating an
// index that already exists is a no-op on the server.
func EnsureIndexes(ctx context.Context, database *mongo.Database, conversations, messages string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := database.Collection(conversations).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "last_activity", Value: -1}},
			Options: options.Index().SetName("participants_last_activity"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "is_archived", Value: 1}, {Key: "participants", Value: 1}},
			Options: options.Index().SetName("type_archived_participants"),
		},
	})
	if err != nil {
		return err
	}

	_, err = database.Collection(messages).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("conversation_created_at"),
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "read_by.user_id", Value: 1}},
			Options: options.Index().SetName("conversation_read_by"),
		},
	})
	return err
}
