package handler

import (
	"net/http"
	"strconv"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Notifier pushes store changes to live sockets. Delivery is best effort and
// never fails the request.
type Notifier interface {
	NotifyNewMessage(conv *model.Conversation, msg *model.Message)
	NotifyNewConversation(conv *model.Conversation, initiator auth.Identity)
	NotifyMessageRead(conversationID, userID, messageID string)
}

// PresenceLookup answers which users currently have a live socket
type PresenceLookup interface {
	OnlineAmong(userIDs []string) map[string]bool
}

type ChatHandler interface {
	ListConversations(c *gin.Context)
	CreateConversation(c *gin.Context)
	GetMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkAsRead(c *gin.Context)
	ArchiveConversation(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type chatHandler struct {
	service  service.ChatService
	notifier Notifier
	presence PresenceLookup
	logger   *zap.Logger
}

func NewChatHandler(service service.ChatService, notifier Notifier, presence PresenceLookup, logger *zap.Logger) ChatHandler {
	useJSONFieldNames()
	return &chatHandler{
		service:  service,
		notifier: notifier,
		presence: presence,
		logger:   logger,
	}
}

type createConversationRequest struct {
	ParticipantID   string `json:"participantId" binding:"required"`
	Title           string `json:"title" binding:"max=200"`
	MentorshipTopic string `json:"mentorshipTopic" binding:"max=200"`
}

type sendMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"messageType" binding:"omitempty,oneof=text image file"`
}

type markAsReadRequest struct {
	MessageID string `json:"messageId"`
}

func (h *chatHandler) ListConversations(c *gin.Context) {
	identity := CurrentIdentity(c)

	summaries, err := h.service.ListConversations(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	for i := range summaries {
		summaries[i].OnlineMembers = h.presence.OnlineAmong(summaries[i].OtherParticipants(identity.UserID))
	}

	respond(c, http.StatusOK, summaries, "Conversations retrieved successfully")
}

func (h *chatHandler) CreateConversation(c *gin.Context) {
	identity := CurrentIdentity(c)

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	conv, reused, err := h.service.CreateOrReuseDirect(c.Request.Context(), identity.UserID, service.CreateConversationInput{
		ParticipantID:   req.ParticipantID,
		Title:           req.Title,
		MentorshipTopic: req.MentorshipTopic,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body := gin.H{"conversation": conv, "reused": reused}
	if reused {
		respond(c, http.StatusOK, body, "Conversation already exists")
		return
	}

	h.notifier.NotifyNewConversation(conv, identity)
	respond(c, http.StatusCreated, body, "Conversation created successfully")
}

func (h *chatHandler) GetMessages(c *gin.Context) {
	identity := CurrentIdentity(c)
	conversationID := c.Param("conversationId")

	params, err := pagination(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	page, err := h.service.ListMessages(c.Request.Context(), conversationID, identity.UserID, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if page.MarkedRead > 0 && len(page.Messages) > 0 {
		last := page.Messages[len(page.Messages)-1]
		h.notifier.NotifyMessageRead(conversationID, identity.UserID, last.ID.Hex())
	}

	respond(c, http.StatusOK, page, "Messages retrieved successfully")
}

func (h *chatHandler) SendMessage(c *gin.Context) {
	identity := CurrentIdentity(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	msg, conv, err := h.service.SendMessage(c.Request.Context(), service.SendMessageInput{
		ConversationID: c.Param("conversationId"),
		SenderID:       identity.UserID,
		Content:        req.Content,
		MessageType:    req.MessageType,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// stored first, pushed second
	h.notifier.NotifyNewMessage(conv, msg)
	respond(c, http.StatusCreated, msg, "Message sent successfully")
}

func (h *chatHandler) MarkAsRead(c *gin.Context) {
	identity := CurrentIdentity(c)
	conversationID := c.Param("conversationId")

	var req markAsReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.logger, bindingError(err))
			return
		}
	}

	modified, err := h.service.MarkAsRead(c.Request.Context(), conversationID, identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notifier.NotifyMessageRead(conversationID, identity.UserID, req.MessageID)
	respond(c, http.StatusOK, gin.H{"modified": modified}, "Messages marked as read")
}

func (h *chatHandler) ArchiveConversation(c *gin.Context) {
	identity := CurrentIdentity(c)

	if err := h.service.Archive(c.Request.Context(), c.Param("conversationId"), identity.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, nil, "Conversation archived")
}

func (h *chatHandler) DeleteMessage(c *gin.Context) {
	identity := CurrentIdentity(c)

	msg, err := h.service.DeleteMessage(c.Request.Context(), c.Param("conversationId"), c.Param("messageId"), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, msg, "Message deleted")
}

func pagination(c *gin.Context) (db.PaginationParams, error) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		return db.PaginationParams{}, service.NewValidationError("page", "must be a positive integer")
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit < 1 {
		return db.PaginationParams{}, service.NewValidationError("limit", "must be a positive integer")
	}

	return db.PaginationParams{Page: page, PageSize: limit}, nil
}
