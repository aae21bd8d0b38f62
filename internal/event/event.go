package event

import "encoding/json"

// Client to server events
const (
	EventJoinConversation   = "joinConversation"
	EventLeaveConversation  = "leaveConversation"
	EventTyping             = "typing"
	EventStopTyping         = "stopTyping"
	EventMarkAsRead         = "markAsRead"
	EventUpdatePresence     = "updatePresence"
	EventMentorshipRequest  = "mentorshipRequest"
	EventMentorshipResponse = "mentorshipResponse"
)

// Server to client events
const (
	EventUserOnline                 = "userOnline"
	EventUserOffline                = "userOffline"
	EventUserTyping                 = "userTyping"
	EventUserStoppedTyping          = "userStoppedTyping"
	EventMessageRead                = "messageRead"
	EventUserPresenceUpdate         = "userPresenceUpdate"
	EventNewMessage                 = "newMessage"
	EventNewConversation            = "newConversation"
	EventMentorshipRequestReceived  = "mentorshipRequestReceived"
	EventMentorshipResponseReceived = "mentorshipResponseReceived"
	EventMentorshipDelivery         = "mentorshipDelivery"
	EventError                      = "error"
)

// WsEvent is the envelope for every frame in both directions
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New marshals payload into an envelope named ev
func New(ev string, payload interface{}) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: ev, Payload: raw}, nil
}

// Decode unmarshals the payload into v
func (e WsEvent) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Payload, v)
}
