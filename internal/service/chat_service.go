package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ChatService is the conversation and message store access layer
type ChatService interface {
	CreateOrReuseDirect(ctx context.Context, requesterID string, in CreateConversationInput) (*model.Conversation, bool, error)
	SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, *model.Conversation, error)
	ListMessages(ctx context.Context, conversationID, requesterID string, params db.PaginationParams) (*MessagePage, error)
	MarkAsRead(ctx context.Context, conversationID, requesterID string) (int64, error)
	Archive(ctx context.Context, conversationID, requesterID string) error
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	DeleteMessage(ctx context.Context, conversationID, messageID, requesterID string) (*model.Message, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ContactIDs(ctx context.Context, userID string) ([]string, error)
}

// CreateConversationInput is the body of a create-or-reuse call
type CreateConversationInput struct {
	ParticipantID   string
	Title           string
	MentorshipTopic string
}

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	MessageType    string
}

// MessagePage is one page of history in chronological order
type MessagePage struct {
	Messages   []model.Message `json:"messages"`
	Page       int64           `json:"page"`
	PageSize   int64           `json:"pageSize"`
	Total      int64           `json:"total"`
	TotalPages int64           `json:"totalPages"`
	MarkedRead int64           `json:"markedRead"`
}

type chatService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	users         repo.UserRepository
	logger        *zap.Logger
	locks         *keyedMutex
	now           func() time.Time
}

// Option customizes the service
type Option func(*chatService)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *chatService) { s.now = now }
}

func NewChatService(conversations repo.ConversationRepository, messages repo.MessageRepository, users repo.UserRepository, logger *zap.Logger, opts ...Option) ChatService {
	s := &chatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		logger:        logger,
		locks:         newKeyedMutex(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// CreateOrReuseDirect
// -----------------------------------------------------------------------------

func (s *chatService) CreateOrReuseDirect(ctx context.Context, requesterID string, in CreateConversationInput) (*model.Conversation, bool, error) {
	otherID := strings.TrimSpace(in.ParticipantID)
	if otherID == "" {
		return nil, false, NewValidationError("participantId", "is required")
	}
	if otherID == requesterID {
		return nil, false, NewValidationError("participantId", "cannot start a conversation with yourself")
	}
	if utf8.RuneCountInString(in.Title) > 200 {
		return nil, false, NewValidationError("title", "must be at most 200 characters")
	}

	other, err := s.users.GetUser(ctx, otherID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, persistenceError("load participant", err)
	}
	if !other.IsActive {
		return nil, false, NewValidationError("participantId", "account is not active")
	}

	participants := model.NormalizeParticipants(requesterID, otherID)
	unlock := s.locks.Lock("pair:" + strings.Join(participants, ":"))
	defer unlock()

	existing, err := s.conversations.FindActiveDirect(ctx, participants)
	if err == nil {
		s.logger.Debug("reusing direct conversation",
			zap.String("conversation_id", existing.ID.Hex()),
			zap.String("requester_id", requesterID),
		)
		return existing, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, persistenceError("look up conversation", err)
	}

	now := s.now().UTC()
	conv := &model.Conversation{
		Participants: participants,
		Type:         model.ConversationDirect,
		Title:        strings.TrimSpace(in.Title),
		LastActivity: now,
		CreatedBy:    requesterID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if topic := strings.TrimSpace(in.MentorshipTopic); topic != "" {
		conv.MentorshipDetails = &model.MentorshipDetails{
			Topic:  topic,
			Status: model.MentorshipPending,
		}
	}

	id, err := s.conversations.Insert(ctx, conv)
	if err != nil {
		return nil, false, persistenceError("create conversation", err)
	}
	conv.ID = id

	return conv, false, nil
}

// -----------------------------------------------------------------------------
// SendMessage
// -----------------------------------------------------------------------------

func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, *model.Conversation, error) {
	content := strings.TrimSpace(in.Content)
	msgType := in.MessageType
	if msgType == "" {
		msgType = model.MessageText
	}

	verr := &ValidationError{Fields: map[string]string{}}
	if content == "" {
		verr.Fields["content"] = "is required"
	} else if utf8.RuneCountInString(content) > model.MaxContentLength {
		verr.Fields["content"] = "must be at most 5000 characters"
	}
	if !model.ValidMessageType(msgType) {
		verr.Fields["messageType"] = "must be one of text, image, file"
	}
	if len(verr.Fields) > 0 {
		return nil, nil, verr
	}

	// single writer per conversation keeps createdAt and lastActivity monotonic
	unlock := s.locks.Lock("conversation:" + in.ConversationID)
	defer unlock()

	conv, err := s.participantConversation(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, nil, err
	}
	if conv.IsArchived {
		return nil, nil, NewValidationError("conversationId", "conversation is archived")
	}

	createdAt := s.now().UTC()
	if createdAt.Before(conv.LastActivity) {
		createdAt = conv.LastActivity
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Content:        content,
		MessageType:    msgType,
		CreatedAt:      createdAt,
		ReadBy:         []model.ReadReceipt{},
	}

	id, err := s.messages.InsertMessage(ctx, msg)
	if err != nil {
		return nil, nil, persistenceError("insert message", err)
	}
	msg.ID = id

	applied, err := s.conversations.UpdateLastMessage(ctx, conv.ID, id, createdAt)
	if err != nil {
		s.logger.Error("message stored but conversation pointers not updated",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.String("message_id", id.Hex()),
			zap.Error(err),
		)
		return nil, nil, persistenceError("update conversation", err)
	}
	if applied {
		conv.LastMessage = &id
		conv.LastActivity = createdAt
	}
	conv.UpdatedAt = createdAt

	return msg, conv, nil
}

// -----------------------------------------------------------------------------
// ListMessages
// -----------------------------------------------------------------------------

func (s *chatService) ListMessages(ctx context.Context, conversationID, requesterID string, params db.PaginationParams) (*MessagePage, error) {
	conv, err := s.participantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}

	params = params.Normalize(defaultPageSize, maxPageSize)
	result, err := s.messages.FilterMessages(ctx, conv.ID, params)
	if err != nil {
		return nil, persistenceError("list messages", err)
	}

	messages := result.Data
	Reverse(messages)

	now := s.now().UTC()
	marked, err := s.messages.MarkRead(ctx, conv.ID, requesterID, now)
	if err != nil {
		s.logger.Warn("read receipts not recorded",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", requesterID),
			zap.Error(err),
		)
	}

	for i := range messages {
		m := &messages[i]
		if m.IsDeleted {
			m.Content = ""
		}
		if err == nil && m.SenderID != requesterID && !m.IsReadBy(requesterID) {
			m.ReadBy = append(m.ReadBy, model.ReadReceipt{UserID: requesterID, ReadAt: now})
		}
	}

	return &MessagePage{
		Messages:   messages,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
		MarkedRead: marked,
	}, nil
}

// -----------------------------------------------------------------------------
// MarkAsRead
// -----------------------------------------------------------------------------

func (s *chatService) MarkAsRead(ctx context.Context, conversationID, requesterID string) (int64, error) {
	conv, err := s.participantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return 0, err
	}

	modified, err := s.messages.MarkRead(ctx, conv.ID, requesterID, s.now().UTC())
	if err != nil {
		return 0, persistenceError("mark as read", err)
	}

	s.logger.Debug("messages marked read",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", requesterID),
		zap.Int64("modified", modified),
	)
	return modified, nil
}

// -----------------------------------------------------------------------------
// Archive
// -----------------------------------------------------------------------------

func (s *chatService) Archive(ctx context.Context, conversationID, requesterID string) error {
	unlock := s.locks.Lock("conversation:" + conversationID)
	defer unlock()

	conv, err := s.participantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}
	if conv.IsArchived {
		return nil
	}

	if err := s.conversations.Archive(ctx, conv.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return persistenceError("archive conversation", err)
	}

	s.logger.Info("conversation archived",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", requesterID),
	)
	return nil
}

// -----------------------------------------------------------------------------
// ListConversations
// -----------------------------------------------------------------------------

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, persistenceError("list conversations", err)
	}

	active := Filter(conversations, func(c model.Conversation) bool { return !c.IsArchived })

	summaries := make([]model.ConversationSummary, 0, len(active))
	for _, c := range active {
		unread, err := s.messages.CountUnread(ctx, c.ID, userID)
		if err != nil {
			return nil, persistenceError("count unread", err)
		}
		summaries = append(summaries, model.ConversationSummary{Conversation: c, UnreadCount: unread})
	}
	return summaries, nil
}

// -----------------------------------------------------------------------------
// DeleteMessage
// -----------------------------------------------------------------------------

func (s *chatService) DeleteMessage(ctx context.Context, conversationID, messageID, requesterID string) (*model.Message, error) {
	conv, err := s.participantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}

	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrNotFound
	}

	msg, err := s.messages.FindMessage(ctx, conv.ID, msgOID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceError("load message", err)
	}
	if msg.SenderID != requesterID {
		return nil, ErrAccessDenied
	}
	if msg.IsDeleted {
		return msg, nil
	}

	now := s.now().UTC()
	if err := s.messages.SoftDelete(ctx, msg.ID, now); err != nil {
		return nil, persistenceError("delete message", err)
	}
	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.Content = ""
	return msg, nil
}

// -----------------------------------------------------------------------------
// Hub support
// -----------------------------------------------------------------------------

func (s *chatService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	_, err := s.participantConversation(ctx, conversationID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAccessDenied):
		return false, nil
	default:
		return false, err
	}
}

func (s *chatService) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.conversations.ContactIDs(ctx, userID)
	if err != nil {
		return nil, persistenceError("resolve contacts", err)
	}
	return ids, nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (s *chatService) participantConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	if _, err := primitive.ObjectIDFromHex(conversationID); err != nil {
		return nil, ErrNotFound
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceError("load conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return conv, nil
}
