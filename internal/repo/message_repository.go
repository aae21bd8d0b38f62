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
	"go.uber.org/zap"
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (primitive.ObjectID, error)
	FindMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) (*model.Message, error)
	FilterMessages(ctx context.Context, conversationID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error)
	MarkRead(ctx context.Context, conversationID primitive.ObjectID, userID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error)
	SoftDelete(ctx context.Context, messageID primitive.ObjectID, at time.Time) error
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (primitive.ObjectID, error) {
	if err := m.validateMessage(msg); err != nil {
		return primitive.NilObjectID, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	// the id is assigned up front so a retry after a lost ack cannot insert twice
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []model.ReadReceipt{}
	}

	attempts := 0
	err := withRetry(ctx, m.logger, "insert message", func(ctx context.Context) error {
		attempts++
		_, err := m.mongoRepo.Create(ctx, *msg)
		if attempts > 1 && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert message after all retries",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID.Hex()),
		)
		return primitive.NilObjectID, fmt.Errorf("insert message failed: %w", err)
	}

	m.logger.Info("message inserted successfully",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("conversation_id", msg.ConversationID.Hex()),
		zap.Int("attempt", attempts),
	)
	return msg.ID, nil
}

// FindMessage loads a single message belonging to the conversation
func (m *messageRepository) FindMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", messageID).Eq("conversation_id", conversationID).Build()

	var msg *model.Message
	err := withRetry(ctx, m.logger, "find message", func(ctx context.Context) error {
		var err error
		msg, err = m.mongoRepo.FindOne(ctx, filter)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find message failed: %w", err)
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// FilterMessages returns one page of the conversation, newest first
// -----------------------------------------------------------------------------
func (m *messageRepository) FilterMessages(ctx context.Context, conversationID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	if conversationID.IsZero() {
		return nil, ErrInvalidChannelID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()
	params.SortBy = "created_at"
	params.SortDesc = true

	m.logger.Debug("filtering messages",
		zap.String("conversation_id", conversationID.Hex()),
		zap.Int64("page", params.Page),
	)

	var result *db.PaginatedResult[model.Message]
	err := withRetry(ctx, m.logger, "filter messages", func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.FindWithPagination(ctx, filter, params)
		return err
	})
	if err != nil {
		return nil, m.handleReadError(err, conversationID.Hex())
	}

	m.logger.Debug("messages filtered successfully",
		zap.String("conversation_id", conversationID.Hex()),
		zap.Int("count", len(result.Data)),
		zap.Int64("total", result.Total),
	)
	return result, nil
}

// MarkRead adds a receipt for userID to every message of the conversation that
// the user did not author and has not read yet. Running it twice is a no-op the
// second time because of the read_by guard.
func (m *messageRepository) MarkRead(ctx context.Context, conversationID primitive.ObjectID, userID string, at time.Time) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := unreadFilter(conversationID, userID)
	update := bson.M{"$push": bson.M{"read_by": model.ReadReceipt{UserID: userID, ReadAt: at}}}

	var result *mongo.UpdateResult
	err := withRetry(ctx, m.logger, "mark read", func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.UpdateManyRaw(ctx, filter, update)
		return err
	})
	if err != nil {
		m.logger.Error("failed to mark messages read",
			zap.String("conversation_id", conversationID.Hex()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("mark read failed: %w", err)
	}

	return result.ModifiedCount, nil
}

// CountUnread counts messages the user has not read yet
func (m *messageRepository) CountUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var count int64
	err := withRetry(ctx, m.logger, "count unread", func(ctx context.Context) error {
		var err error
		count, err = m.mongoRepo.Count(ctx, unreadFilter(conversationID, userID))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count unread failed: %w", err)
	}
	return count, nil
}

// SoftDelete flags the message as deleted; messages are never removed
func (m *messageRepository) SoftDelete(ctx context.Context, messageID primitive.ObjectID, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var result *mongo.UpdateResult
	err := withRetry(ctx, m.logger, "soft delete message", func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.Update(ctx, bson.M{"_id": messageID}, bson.M{
			"is_deleted": true,
			"deleted_at": at,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("soft delete failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func unreadFilter(conversationID primitive.ObjectID, userID string) bson.M {
	return db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("sender_id", userID).
		NotElemMatch("read_by", bson.M{"user_id": userID}).
		Build()
}

func (m *messageRepository) validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return ErrInvalidChannelID
	}
	return nil
}

func (m *messageRepository) handleReadError(err error, conversationID string) error {
	if errors.Is(err, ErrOperationTimeout) {
		m.logger.Error("read timeout", zap.String("conversation_id", conversationID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("conversation_id", conversationID))
		return err
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("conversation_id", conversationID))
	return fmt.Errorf("filter messages failed: %w", err)
}
