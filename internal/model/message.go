package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// MaxContentLength bounds message content in characters
const MaxContentLength = 5000

// Message represents a chat message in MongoDB
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	Content        string             `json:"content" bson:"content"`
	MessageType    string             `json:"messageType" bson:"message_type"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	IsDeleted      bool               `json:"isDeleted" bson:"is_deleted"`
	DeletedAt      *time.Time         `json:"deletedAt,omitempty" bson:"deleted_at,omitempty"`
	ReadBy         []ReadReceipt      `json:"readBy" bson:"read_by"`
}

// ReadReceipt records when a user read a message
type ReadReceipt struct {
	UserID string    `json:"userId" bson:"user_id"`
	ReadAt time.Time `json:"readAt" bson:"read_at"`
}

// IsReadBy reports whether userID already has a receipt on the message
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// ValidMessageType reports whether t is a known message type
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
