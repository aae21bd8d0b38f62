package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/db"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) CreateOrReuseDirect(ctx context.Context, requesterID string, in service.CreateConversationInput) (*model.Conversation, bool, error) {
	args := m.Called(ctx, requesterID, in)
	conv, _ := args.Get(0).(*model.Conversation)
	return conv, args.Bool(1), args.Error(2)
}

func (m *MockChatService) SendMessage(ctx context.Context, in service.SendMessageInput) (*model.Message, *model.Conversation, error) {
	args := m.Called(ctx, in)
	msg, _ := args.Get(0).(*model.Message)
	conv, _ := args.Get(1).(*model.Conversation)
	return msg, conv, args.Error(2)
}

func (m *MockChatService) ListMessages(ctx context.Context, conversationID, requesterID string, params db.PaginationParams) (*service.MessagePage, error) {
	args := m.Called(ctx, conversationID, requesterID, params)
	page, _ := args.Get(0).(*service.MessagePage)
	return page, args.Error(1)
}

func (m *MockChatService) MarkAsRead(ctx context.Context, conversationID, requesterID string) (int64, error) {
	args := m.Called(ctx, conversationID, requesterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatService) Archive(ctx context.Context, conversationID, requesterID string) error {
	return m.Called(ctx, conversationID, requesterID).Error(0)
}

func (m *MockChatService) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.ConversationSummary)
	return list, args.Error(1)
}

func (m *MockChatService) DeleteMessage(ctx context.Context, conversationID, messageID, requesterID string) (*model.Message, error) {
	args := m.Called(ctx, conversationID, messageID, requesterID)
	msg, _ := args.Get(0).(*model.Message)
	return msg, args.Error(1)
}

func (m *MockChatService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatService) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewMessage(conv *model.Conversation, msg *model.Message) {
	m.Called(conv, msg)
}

func (m *MockNotifier) NotifyNewConversation(conv *model.Conversation, initiator auth.Identity) {
	m.Called(conv, initiator)
}

func (m *MockNotifier) NotifyMessageRead(conversationID, userID, messageID string) {
	m.Called(conversationID, userID, messageID)
}

func (m *MockNotifier) OnlineAmong(userIDs []string) map[string]bool {
	args := m.Called(userIDs)
	online, _ := args.Get(0).(map[string]bool)
	return online
}

type stubVerifier map[string]*auth.Identity

func (s stubVerifier) Verify(ctx context.Context, credential string) (*auth.Identity, error) {
	switch credential {
	case "inactive":
		return nil, auth.ErrInactiveAccount
	case "broken":
		return nil, errors.New("directory unavailable")
	}
	if id, ok := s[credential]; ok {
		return id, nil
	}
	return nil, auth.ErrInvalidCredential
}

// -----------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------

var alice = &auth.Identity{UserID: "alice", Name: "Alice", Role: model.RoleAlumni}

type envelope struct {
	HttpStatusCode int             `json:"HttpStatusCode"`
	ResponseBody   json.RawMessage `json:"ResponseBody"`
	IsSuccess      bool            `json:"IsSuccess"`
	Message        string          `json:"Message"`
}

func setupRouter(svc *MockChatService, notifier *MockNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	h := NewChatHandler(svc, notifier, notifier, logger)
	router := gin.New()
	group := router.Group("/api/messages", AuthMiddleware(stubVerifier{"alice-token": alice}, logger))
	{
		group.GET("/conversations", h.ListConversations)
		group.POST("/conversations", h.CreateConversation)
		group.GET("/:conversationId", h.GetMessages)
		group.POST("/:conversationId", h.SendMessage)
		group.PUT("/:conversationId/read", h.MarkAsRead)
		group.DELETE("/:conversationId", h.ArchiveConversation)
		group.DELETE("/:conversationId/messages/:messageId", h.DeleteMessage)
	}
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

// -----------------------------------------------------------------
// Tests
// -----------------------------------------------------------------

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing", token: "", status: http.StatusUnauthorized},
		{name: "invalid", token: "garbage", status: http.StatusUnauthorized},
		{name: "inactive", token: "inactive", status: http.StatusForbidden},
		{name: "directory down", token: "broken", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockChatService)
			router := setupRouter(svc, new(MockNotifier))

			w, env := doRequest(t, router, http.MethodGet, "/api/messages/conversations", tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.IsSuccess)
			svc.AssertNotCalled(t, "ListConversations", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateConversation(t *testing.T) {
	conv := &model.Conversation{ID: primitive.NewObjectID(), Participants: []string{"alice", "bob"}, Type: model.ConversationDirect}
	input := service.CreateConversationInput{ParticipantID: "bob"}

	t.Run("created notifies the other participant", func(t *testing.T) {
		svc := new(MockChatService)
		notifier := new(MockNotifier)
		svc.On("CreateOrReuseDirect", mock.Anything, "alice", input).Return(conv, false, nil)
		notifier.On("NotifyNewConversation", conv, *alice).Return()

		w, env := doRequest(t, setupRouter(svc, notifier), http.MethodPost, "/api/messages/conversations", "alice-token", gin.H{"participantId": "bob"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.IsSuccess)
		var body struct {
			Reused bool `json:"reused"`
		}
		require.NoError(t, json.Unmarshal(env.ResponseBody, &body))
		assert.False(t, body.Reused)
		notifier.AssertExpectations(t)
	})

	t.Run("reused is silent", func(t *testing.T) {
		svc := new(MockChatService)
		notifier := new(MockNotifier)
		svc.On("CreateOrReuseDirect", mock.Anything, "alice", input).Return(conv, true, nil)

		w, _ := doRequest(t, setupRouter(svc, notifier), http.MethodPost, "/api/messages/conversations", "alice-token", gin.H{"participantId": "bob"})

		assert.Equal(t, http.StatusOK, w.Code)
		notifier.AssertNotCalled(t, "NotifyNewConversation", mock.Anything, mock.Anything)
	})

	t.Run("missing participant is a field error", func(t *testing.T) {
		svc := new(MockChatService)
		w, env := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodPost, "/api/messages/conversations", "alice-token", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(env.ResponseBody, &body))
		assert.Equal(t, "is required", body.Fields["participantId"])
		svc.AssertNotCalled(t, "CreateOrReuseDirect", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("self conversation", func(t *testing.T) {
		svc := new(MockChatService)
		svc.On("CreateOrReuseDirect", mock.Anything, "alice", service.CreateConversationInput{ParticipantID: "alice"}).
			Return(nil, false, service.NewValidationError("participantId", "cannot start a conversation with yourself"))

		w, _ := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodPost, "/api/messages/conversations", "alice-token", gin.H{"participantId": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSendMessage(t *testing.T) {
	convID := primitive.NewObjectID()
	conv := &model.Conversation{ID: convID, Participants: []string{"alice", "bob"}}
	msg := &model.Message{ID: primitive.NewObjectID(), ConversationID: convID, SenderID: "alice", Content: "hello", MessageType: model.MessageText}
	path := "/api/messages/" + convID.Hex()

	t.Run("stored then fanned out", func(t *testing.T) {
		svc := new(MockChatService)
		notifier := new(MockNotifier)
		svc.On("SendMessage", mock.Anything, service.SendMessageInput{ConversationID: convID.Hex(), SenderID: "alice", Content: "hello"}).
			Return(msg, conv, nil)
		notifier.On("NotifyNewMessage", conv, msg).Return()

		w, env := doRequest(t, setupRouter(svc, notifier), http.MethodPost, path, "alice-token", gin.H{"content": "hello"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got model.Message
		require.NoError(t, json.Unmarshal(env.ResponseBody, &got))
		assert.Equal(t, "hello", got.Content)
		notifier.AssertExpectations(t)
	})

	t.Run("store failure pushes nothing", func(t *testing.T) {
		svc := new(MockChatService)
		notifier := new(MockNotifier)
		svc.On("SendMessage", mock.Anything, mock.Anything).Return(nil, nil, service.ErrPersistence)

		w, _ := doRequest(t, setupRouter(svc, notifier), http.MethodPost, path, "alice-token", gin.H{"content": "hello"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		notifier.AssertNotCalled(t, "NotifyNewMessage", mock.Anything, mock.Anything)
	})

	t.Run("bad message type", func(t *testing.T) {
		svc := new(MockChatService)
		w, env := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodPost, path, "alice-token", gin.H{"content": "x", "messageType": "video"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, string(env.ResponseBody), "messageType")
	})

	errorCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not a participant", err: service.ErrAccessDenied, status: http.StatusForbidden},
		{name: "unknown conversation", err: service.ErrNotFound, status: http.StatusNotFound},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockChatService)
			svc.On("SendMessage", mock.Anything, mock.Anything).Return(nil, nil, tc.err)

			w, _ := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodPost, path, "alice-token", gin.H{"content": "hello"})
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestGetMessages(t *testing.T) {
	convID := primitive.NewObjectID().Hex()
	last := model.Message{ID: primitive.NewObjectID(), SenderID: "bob", Content: "hi"}

	t.Run("pagination and read relay", func(t *testing.T) {
		svc := new(MockChatService)
		notifier := new(MockNotifier)
		svc.On("ListMessages", mock.Anything, convID, "alice", db.PaginationParams{Page: 2, PageSize: 10}).
			Return(&service.MessagePage{Messages: []model.Message{last}, Page: 2, PageSize: 10, Total: 11, TotalPages: 2, MarkedRead: 1}, nil)
		notifier.On("NotifyMessageRead", convID, "alice", last.ID.Hex()).Return()

		w, env := doRequest(t, setupRouter(svc, notifier), http.MethodGet, "/api/messages/"+convID+"?page=2&limit=10", "alice-token", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var page service.MessagePage
		require.NoError(t, json.Unmarshal(env.ResponseBody, &page))
		assert.Equal(t, int64(11), page.Total)
		notifier.AssertExpectations(t)
	})

	t.Run("invalid page", func(t *testing.T) {
		svc := new(MockChatService)
		w, _ := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodGet, "/api/messages/"+convID+"?page=zero", "alice-token", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non participant", func(t *testing.T) {
		svc := new(MockChatService)
		svc.On("ListMessages", mock.Anything, convID, "alice", mock.Anything).Return(nil, service.ErrAccessDenied)

		w, _ := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodGet, "/api/messages/"+convID, "alice-token", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMarkAsReadAndArchive(t *testing.T) {
	convID := primitive.NewObjectID().Hex()

	svc := new(MockChatService)
	notifier := new(MockNotifier)
	svc.On("MarkAsRead", mock.Anything, convID, "alice").Return(int64(3), nil)
	svc.On("Archive", mock.Anything, convID, "alice").Return(nil)
	notifier.On("NotifyMessageRead", convID, "alice", "m9").Return()
	router := setupRouter(svc, notifier)

	w, env := doRequest(t, router, http.MethodPut, "/api/messages/"+convID+"/read", "alice-token", gin.H{"messageId": "m9"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"modified":3}`, string(env.ResponseBody))

	w, _ = doRequest(t, router, http.MethodDelete, "/api/messages/"+convID, "alice-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestListConversations_AnnotatesPresence(t *testing.T) {
	conv := model.Conversation{ID: primitive.NewObjectID(), Participants: []string{"alice", "bob"}}

	svc := new(MockChatService)
	notifier := new(MockNotifier)
	svc.On("ListConversations", mock.Anything, "alice").Return([]model.ConversationSummary{{Conversation: conv, UnreadCount: 2}}, nil)
	notifier.On("OnlineAmong", []string{"bob"}).Return(map[string]bool{"bob": true})

	w, env := doRequest(t, setupRouter(svc, notifier), http.MethodGet, "/api/messages/conversations", "alice-token", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var list []model.ConversationSummary
	require.NoError(t, json.Unmarshal(env.ResponseBody, &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].UnreadCount)
	assert.True(t, list[0].OnlineMembers["bob"])
}

func TestDeleteMessage(t *testing.T) {
	convID := primitive.NewObjectID().Hex()
	msgID := primitive.NewObjectID().Hex()

	svc := new(MockChatService)
	svc.On("DeleteMessage", mock.Anything, convID, msgID, "alice").Return(nil, service.ErrAccessDenied)

	w, _ := doRequest(t, setupRouter(svc, new(MockNotifier)), http.MethodDelete, "/api/messages/"+convID+"/messages/"+msgID, "alice-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
