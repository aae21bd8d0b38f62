package event

import "encoding/json"

// -----------------------------------------------------------------
// Client to Server payloads
// -----------------------------------------------------------------

// ConversationRef carries a conversation id (join, leave, typing, stopTyping)
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

// MarkAsReadPayload acknowledges messages up to MessageID
type MarkAsReadPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// UpdatePresencePayload announces an explicit status
type UpdatePresencePayload struct {
	Status string `json:"status"`
}

// MentorshipPayload is relayed to RecipientID; everything else is opaque
type MentorshipPayload struct {
	RecipientID string          `json:"recipientId"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// -----------------------------------------------------------------
// Server to Client payloads
// -----------------------------------------------------------------

// UserOnline is sent on a user's first connection
type UserOnline struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// UserOffline is sent when a user's last connection goes away
type UserOffline struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// UserTyping is relayed to the conversation room
type UserTyping struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	ConversationID string `json:"conversationId"`
}

// UserStoppedTyping is relayed to the conversation room
type UserStoppedTyping struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

// MessageRead is relayed to the conversation room
type MessageRead struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// UserPresenceUpdate relays an explicit status change
type UserPresenceUpdate struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// NewMessage is pushed to recipients' personal rooms
type NewMessage struct {
	Message        interface{} `json:"message"`
	ConversationID string      `json:"conversationId"`
}

// NewConversation is pushed when a conversation is first created
type NewConversation struct {
	Conversation interface{} `json:"conversation"`
	Initiator    Sender      `json:"initiator"`
}

// Sender identifies who originated a relayed signal
type Sender struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// MentorshipReceived is delivered to the recipient of a mentorship signal
type MentorshipReceived struct {
	From Sender          `json:"from"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MentorshipDelivery acknowledges a mentorship signal to its sender
type MentorshipDelivery struct {
	RecipientID string `json:"recipientId"`
	Kind        string `json:"kind"`
	Delivered   bool   `json:"delivered"`
}
