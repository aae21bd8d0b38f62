package hub

import (
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"go.uber.org/zap"
)

// Live delivery is at most once. A recipient with no open socket simply
// misses the push and sees the message on the next history fetch.

// NotifyNewMessage pushes a stored message to every participant except the
// sender. Callers invoke it only after the store accepted the message.
func (h *Hub) NotifyNewMessage(conv *model.Conversation, msg *model.Message) {
	if conv == nil || msg == nil {
		return
	}

	conversationID := conv.ID.Hex()
	ev, err := event.New(event.EventNewMessage, event.NewMessage{
		Message:        msg,
		ConversationID: conversationID,
	})
	if err != nil {
		h.logger.Error("failed to encode new message", zap.Error(err))
		return
	}

	for _, userID := range conv.OtherParticipants(msg.SenderID) {
		if n := h.publish(personalRoom(userID), ev, nil); n == 0 {
			h.logger.Debug("recipient offline, live delivery skipped",
				zap.String("conversation_id", conversationID),
				zap.String("user_id", userID),
			)
		}
	}
}

// NotifyNewConversation tells the other participants about a conversation
// that was just created
func (h *Hub) NotifyNewConversation(conv *model.Conversation, initiator auth.Identity) {
	if conv == nil {
		return
	}

	ev, err := event.New(event.EventNewConversation, event.NewConversation{
		Conversation: conv,
		Initiator: event.Sender{
			UserID: initiator.UserID,
			Name:   initiator.Name,
			Role:   initiator.Role,
		},
	})
	if err != nil {
		h.logger.Error("failed to encode new conversation", zap.Error(err))
		return
	}

	for _, userID := range conv.OtherParticipants(initiator.UserID) {
		h.publish(personalRoom(userID), ev, nil)
	}
}

// NotifyMessageRead relays a read receipt to the conversation room, skipping
// the reader's own sockets
func (h *Hub) NotifyMessageRead(conversationID, userID, messageID string) {
	ev, err := event.New(event.EventMessageRead, event.MessageRead{
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      messageID,
	})
	if err != nil {
		return
	}
	h.publish(conversationRoom(conversationID), ev, exceptUser(userID))
}
