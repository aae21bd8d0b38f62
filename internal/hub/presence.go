package hub

import (
	"sort"
	"sync"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"go.uber.org/zap"
)

type presenceEntry struct {
	identity    auth.Identity
	connections int
	status      string
}

// presenceTracker counts live sockets per user. Only the first connect and the
// last disconnect are reported as transitions.
type presenceTracker struct {
	mu    sync.Mutex
	users map[string]*presenceEntry
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{users: make(map[string]*presenceEntry)}
}

// connect returns true on the 0 -> 1 transition
func (p *presenceTracker) connect(identity auth.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[identity.UserID]
	if !ok {
		p.users[identity.UserID] = &presenceEntry{
			identity:    identity,
			connections: 1,
			status:      model.PresenceOnline,
		}
		return true
	}
	entry.connections++
	return false
}

// disconnect returns true on the 1 -> 0 transition
func (p *presenceTracker) disconnect(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	if !ok {
		return false
	}
	entry.connections--
	if entry.connections > 0 {
		return false
	}
	delete(p.users, userID)
	return true
}

// setStatus records an explicit status; the connection count is untouched
func (p *presenceTracker) setStatus(userID, status string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	if !ok {
		return false
	}
	entry.status = status
	return true
}

func (p *presenceTracker) info(userID string) model.PresenceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	if !ok {
		return model.PresenceInfo{UserID: userID, Status: model.PresenceOffline}
	}
	return model.PresenceInfo{
		UserID:      userID,
		Online:      true,
		Status:      entry.status,
		Connections: entry.connections,
	}
}

func (p *presenceTracker) snapshot() []model.PresenceInfo {
	p.mu.Lock()
	out := make([]model.PresenceInfo, 0, len(p.users))
	for id, entry := range p.users {
		out = append(out, model.PresenceInfo{
			UserID:      id,
			Online:      true,
			Status:      entry.status,
			Connections: entry.connections,
		})
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// PresenceOf returns the aggregated presence of a user across all sockets
func (h *Hub) PresenceOf(userID string) model.PresenceInfo {
	return h.presence.info(userID)
}

// OnlineAmong reports which of the given users have at least one live socket
func (h *Hub) OnlineAmong(userIDs []string) map[string]bool {
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		out[id] = h.presence.info(id).Online
	}
	return out
}

// broadcastPresence sends ev to the personal rooms of the user's contacts.
// When self is set, the user's own sockets other than self receive it too.
func (h *Hub) broadcastPresence(userID string, ev event.WsEvent, self *Client) {
	ctx, cancel := h.opContext()
	defer cancel()

	contacts, err := h.contacts.ContactIDs(ctx, userID)
	if err != nil {
		h.logger.Warn("presence not delivered: contacts unavailable",
			zap.String("user_id", userID),
			zap.String("event", ev.Event),
			zap.Error(err),
		)
		return
	}

	for _, id := range contacts {
		if id == userID {
			continue
		}
		h.publish(personalRoom(id), ev, nil)
	}

	if self != nil {
		h.publish(personalRoom(userID), ev, exceptClient(self))
	}
}

func (h *Hub) updatePresence(c *Client, status string) {
	if !model.ValidPresenceStatus(status) {
		c.sendError("invalid_status", "status must be one of online, away, busy, offline")
		return
	}
	if !h.presence.setStatus(c.UserID(), status) {
		return
	}

	ev, err := event.New(event.EventUserPresenceUpdate, event.UserPresenceUpdate{
		UserID: c.UserID(),
		Status: status,
	})
	if err != nil {
		return
	}
	// same key as online/offline so a status never overtakes the transition
	h.schedule(personalRoom(c.UserID()), func() {
		h.broadcastPresence(c.UserID(), ev, c)
	})
}
