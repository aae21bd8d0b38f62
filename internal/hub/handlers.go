package hub

import (
	"errors"
	"strings"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/service"

	"go.uber.org/zap"
)

// handleEvent runs on the client's dispatch goroutine, so events from one socket are
// processed in the order they were read
func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	if c.IsClosed() {
		return
	}

	switch ev.Event {
	case event.EventJoinConversation:
		h.handleJoinConversation(ev, c)
	case event.EventLeaveConversation:
		h.handleLeaveConversation(ev, c)
	case event.EventTyping:
		if id, ok := conversationRef(ev, c); ok {
			h.startTyping(c, id)
		}
	case event.EventStopTyping:
		if id, ok := conversationRef(ev, c); ok && c.inConversation(id) {
			h.typing.stop(id, c.UserID())
			h.relayStoppedTyping(id, c.UserID())
		}
	case event.EventMarkAsRead:
		h.handleMarkAsRead(ev, c)
	case event.EventUpdatePresence:
		var payload event.UpdatePresencePayload
		if err := ev.Decode(&payload); err != nil {
			c.sendError("invalid_payload", "status is required")
			return
		}
		h.updatePresence(c, payload.Status)
	case event.EventMentorshipRequest, event.EventMentorshipResponse:
		h.handleMentorship(ev, c)
	default:
		c.logger.Debug("unknown event type", zap.String("event", ev.Event))
		c.sendError("unknown_event", "unsupported event: "+ev.Event)
	}
}

func conversationRef(ev event.WsEvent, c *Client) (string, bool) {
	var payload event.ConversationRef
	if err := ev.Decode(&payload); err != nil || strings.TrimSpace(payload.ConversationID) == "" {
		c.sendError("invalid_payload", "conversationId is required")
		return "", false
	}
	return strings.TrimSpace(payload.ConversationID), true
}

func (h *Hub) handleJoinConversation(ev event.WsEvent, c *Client) {
	conversationID, ok := conversationRef(ev, c)
	if !ok {
		return
	}
	if c.inConversation(conversationID) {
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	member, err := h.access.IsParticipant(ctx, conversationID, c.UserID())
	if err != nil {
		h.sendServiceError(c, err)
		return
	}
	if !member {
		c.sendError("access_denied", "not a participant of this conversation")
		return
	}

	if !c.addConversation(conversationID) {
		return
	}
	h.joinRoom(conversationRoom(conversationID), c)

	// the socket may have gone away while the store was consulted
	if c.IsClosed() {
		c.removeConversation(conversationID)
		h.leaveRoom(conversationRoom(conversationID), c)
		return
	}
	c.logger.Debug("joined conversation", zap.String("conversation_id", conversationID))
}

func (h *Hub) handleLeaveConversation(ev event.WsEvent, c *Client) {
	conversationID, ok := conversationRef(ev, c)
	if !ok {
		return
	}
	if !c.removeConversation(conversationID) {
		return
	}
	h.leaveRoom(conversationRoom(conversationID), c)

	if !h.userInRoom(conversationRoom(conversationID), c.UserID()) && h.typing.stop(conversationID, c.UserID()) {
		h.relayStoppedTyping(conversationID, c.UserID())
	}
	c.logger.Debug("left conversation", zap.String("conversation_id", conversationID))
}

func (h *Hub) handleMarkAsRead(ev event.WsEvent, c *Client) {
	var payload event.MarkAsReadPayload
	if err := ev.Decode(&payload); err != nil || payload.ConversationID == "" {
		c.sendError("invalid_payload", "conversationId is required")
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()

	if _, err := h.access.MarkAsRead(ctx, payload.ConversationID, c.UserID()); err != nil {
		h.sendServiceError(c, err)
		return
	}
	h.NotifyMessageRead(payload.ConversationID, c.UserID(), payload.MessageID)
}

func (h *Hub) handleMentorship(ev event.WsEvent, c *Client) {
	var payload event.MentorshipPayload
	if err := ev.Decode(&payload); err != nil || strings.TrimSpace(payload.RecipientID) == "" {
		c.sendError("invalid_payload", "recipientId is required")
		return
	}
	if payload.RecipientID == c.UserID() {
		c.sendError("invalid_payload", "recipient must be another user")
		return
	}

	name := event.EventMentorshipRequestReceived
	if ev.Event == event.EventMentorshipResponse {
		name = event.EventMentorshipResponseReceived
	}

	identity := c.Identity()
	out, err := event.New(name, event.MentorshipReceived{
		From: event.Sender{UserID: identity.UserID, Name: identity.Name, Role: identity.Role},
		Data: payload.Data,
	})
	if err != nil {
		c.sendError("invalid_payload", "data must be valid JSON")
		return
	}

	delivered := h.publish(personalRoom(payload.RecipientID), out, nil) > 0
	if !delivered {
		c.logger.Debug("mentorship signal not delivered: recipient offline",
			zap.String("recipient_id", payload.RecipientID),
			zap.String("event", ev.Event),
		)
	}

	ack, err := event.New(event.EventMentorshipDelivery, event.MentorshipDelivery{
		RecipientID: payload.RecipientID,
		Kind:        ev.Event,
		Delivered:   delivered,
	})
	if err == nil {
		c.SafeSend(ack, h.opts.SendTimeout)
	}
}

func (h *Hub) sendServiceError(c *Client, err error) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		c.sendError("access_denied", "not a participant of this conversation")
	case errors.Is(err, service.ErrNotFound):
		c.sendError("not_found", "conversation not found")
	case errors.As(err, &verr):
		c.sendError("invalid_payload", verr.Error())
	default:
		c.logger.Error("socket operation failed", zap.Error(err))
		c.sendError("internal_error", "operation failed, try again")
	}
}
