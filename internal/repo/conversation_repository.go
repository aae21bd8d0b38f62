package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

type ConversationRepository interface {
	FindByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	FindActiveDirect(ctx context.Context, participants []string) (*model.Conversation, error)
	Insert(ctx context.Context, conv *model.Conversation) (primitive.ObjectID, error)
	UpdateLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, at time.Time) (bool, error)
	Archive(ctx context.Context, conversationID primitive.ObjectID) error
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	ContactIDs(ctx context.Context, userID string) ([]string, error)
}

func NewConversationRepository(repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// FindByID fetches a conversation document by its hex id
func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrInvalidChannelID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var conversation *model.Conversation
	err := withRetry(ctx, r.logger, "find conversation", func(ctx context.Context) error {
		var err error
		conversation, err = r.mongoRepo.FindByID(ctx, conversationID)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, db.ErrInvalidID) {
			r.logger.Debug("conversation not found", zap.String("conversation_id", conversationID))
			return nil, ErrNotFound
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	return conversation, nil
}

// FindActiveDirect returns the non-archived direct conversation whose participant
// set is exactly the given (normalized) pair
func (r *conversationRepository) FindActiveDirect(ctx context.Context, participants []string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("type", model.ConversationDirect).
		Eq("is_archived", false).
		ExactSet("participants", participants).
		Build()

	var conversation *model.Conversation
	err := withRetry(ctx, r.logger, "find direct conversation", func(ctx context.Context) error {
		var err error
		conversation, err = r.mongoRepo.FindOne(ctx, filter)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up direct conversation: %w", err)
	}
	return conversation, nil
}

// Insert stores a new conversation and returns its id
func (r *conversationRepository) Insert(ctx context.Context, conv *model.Conversation) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}

	// a fixed _id makes a retried insert fail with a duplicate key instead of duplicating
	err := withRetry(ctx, r.logger, "insert conversation", func(ctx context.Context) error {
		_, err := r.mongoRepo.Create(ctx, *conv)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to insert conversation", zap.Error(err))
		return primitive.NilObjectID, fmt.Errorf("insert conversation failed: %w", err)
	}

	r.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.Strings("participants", conv.Participants),
	)
	return conv.ID, nil
}

// UpdateLastMessage moves the conversation pointers forward. The update only
// applies when at is not older than the stored lastActivity, so the pointer
// never regresses; the bool reports whether it applied.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, at time.Time) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", conversationID).
		Lte("last_activity", at).
		Build()

	var result *mongo.UpdateResult
	err := withRetry(ctx, r.logger, "update last message", func(ctx context.Context) error {
		var err error
		result, err = r.mongoRepo.Update(ctx, filter, bson.M{
			"last_message":  messageID,
			"last_activity": at,
			"updated_at":    time.Now().UTC(),
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("update conversation pointers failed: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// Archive flags the conversation as archived
func (r *conversationRepository) Archive(ctx context.Context, conversationID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var result *mongo.UpdateResult
	err := withRetry(ctx, r.logger, "archive conversation", func(ctx context.Context) error {
		var err error
		result, err = r.mongoRepo.Update(ctx, bson.M{"_id": conversationID}, bson.M{
			"is_archived": true,
			"updated_at":  time.Now().UTC(),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("archive conversation failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the user's non-archived conversations, most recent activity first
func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Eq("is_archived", false).Build()
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}, {Key: "_id", Value: -1}})

	var conversations []model.Conversation
	err := withRetry(ctx, r.logger, "list conversations", func(ctx context.Context) error {
		var err error
		conversations, err = r.mongoRepo.FindAll(ctx, filter, opts)
		return err
	})
	if err != nil {
		r.logger.Error("failed to query conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}

	r.logger.Debug("conversations retrieved", zap.String("user_id", userID), zap.Int("count", len(conversations)))
	return conversations, nil
}

// ContactIDs returns every user sharing a non-archived conversation with userID
func (r *conversationRepository) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Eq("is_archived", false).Build()

	var values []interface{}
	err := withRetry(ctx, r.logger, "contact ids", func(ctx context.Context) error {
		var err error
		values, err = r.mongoRepo.Distinct(ctx, "participants", filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contacts: %w", err)
	}

	contacts := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != userID {
			contacts = append(contacts, id)
		}
	}
	return contacts, nil
}
