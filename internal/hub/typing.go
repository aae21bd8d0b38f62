package hub

import (
	"sync"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"

	"go.uber.org/zap"
)

type typingKey struct {
	conversationID string
	userID         string
}

type typingEntry struct {
	timer    *time.Timer
	identity auth.Identity
}

// typingCoordinator tracks who is typing where. Each typing signal arms a
// timer; if no further signal arrives the indicator is cleared on expiry.
type typingCoordinator struct {
	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	timeout time.Duration
	expired func(conversationID string, identity auth.Identity)
}

func newTypingCoordinator(timeout time.Duration, expired func(string, auth.Identity)) *typingCoordinator {
	return &typingCoordinator{
		entries: make(map[typingKey]*typingEntry),
		timeout: timeout,
		expired: expired,
	}
}

// start arms or re-arms the indicator and reports whether it was idle before
func (t *typingCoordinator) start(conversationID string, identity auth.Identity) bool {
	key := typingKey{conversationID: conversationID, userID: identity.UserID}
	entry := &typingEntry{identity: identity}

	t.mu.Lock()
	prev, active := t.entries[key]
	if active {
		prev.timer.Stop()
	}
	t.entries[key] = entry
	entry.timer = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		if t.entries[key] != entry {
			t.mu.Unlock()
			return
		}
		delete(t.entries, key)
		t.mu.Unlock()
		t.expired(conversationID, identity)
	})
	t.mu.Unlock()

	return !active
}

// stop clears the indicator and reports whether one was active
func (t *typingCoordinator) stop(conversationID, userID string) bool {
	key := typingKey{conversationID: conversationID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.entries, key)
	return true
}

func (t *typingCoordinator) active(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{conversationID: conversationID, userID: userID}]
	return ok
}

func (t *typingCoordinator) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}

// -----------------------------------------------------------------
// Relays
// -----------------------------------------------------------------

func (h *Hub) startTyping(c *Client, conversationID string) {
	if !c.inConversation(conversationID) {
		c.logger.Debug("typing dropped: conversation not joined", zap.String("conversation_id", conversationID))
		return
	}
	h.typing.start(conversationID, c.identity)

	ev, err := event.New(event.EventUserTyping, event.UserTyping{
		UserID:         c.UserID(),
		Name:           c.identity.Name,
		ConversationID: conversationID,
	})
	if err != nil {
		return
	}
	h.publish(conversationRoom(conversationID), ev, exceptUser(c.UserID()))
}

// stopTyping clears the indicator and, if one was active, tells the room
func (h *Hub) stopTyping(identity auth.Identity, conversationID string) {
	if !h.typing.stop(conversationID, identity.UserID) {
		return
	}
	h.schedule(conversationRoom(conversationID), func() {
		h.relayStoppedTyping(conversationID, identity.UserID)
	})
}

func (h *Hub) typingExpired(conversationID string, identity auth.Identity) {
	h.logger.Debug("typing indicator expired",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", identity.UserID),
	)
	h.schedule(conversationRoom(conversationID), func() {
		h.relayStoppedTyping(conversationID, identity.UserID)
	})
}

func (h *Hub) relayStoppedTyping(conversationID, userID string) {
	ev, err := event.New(event.EventUserStoppedTyping, event.UserStoppedTyping{
		UserID:         userID,
		ConversationID: conversationID,
	})
	if err != nil {
		return
	}
	h.publish(conversationRoom(conversationID), ev, exceptUser(userID))
}
