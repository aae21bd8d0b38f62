package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load

	personalPrefix     = "user:"
	conversationPrefix = "conversation:"
)

func personalRoom(userID string) string { return personalPrefix + userID }

func conversationRoom(conversationID string) string { return conversationPrefix + conversationID }

// ConversationAccess is the part of the conversation store the socket layer needs
type ConversationAccess interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	MarkAsRead(ctx context.Context, conversationID, userID string) (int64, error)
}

// ContactResolver returns the users who share at least one conversation with userID.
// Presence changes are delivered to them only.
type ContactResolver interface {
	ContactIDs(ctx context.Context, userID string) ([]string, error)
}

// Options tunes the socket layer. Zero fields take the defaults.
type Options struct {
	AllowedOrigins   []string
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	SendBuffer       int
	SendTimeout      time.Duration
	QueueSize        int
	RegisterTimeout  time.Duration
	TypingTimeout    time.Duration
	OperationTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		PingInterval:     25 * time.Second,
		PongWait:         60 * time.Second,
		WriteWait:        10 * time.Second,
		MaxMessageSize:   64 * 1024,
		SendBuffer:       256,
		SendTimeout:      2 * time.Second,
		QueueSize:        64,
		RegisterTimeout:  5 * time.Second,
		TypingTimeout:    6 * time.Second,
		OperationTimeout: 5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = d.SendTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.RegisterTimeout <= 0 {
		o.RegisterTimeout = d.RegisterTimeout
	}
	if o.TypingTimeout <= 0 {
		o.TypingTimeout = d.TypingTimeout
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = d.OperationTimeout
	}
	return o
}

type clientBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

type Hub struct {
	shards     [shardCount]*clientBucket
	clients    map[string]*Client
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	jobs       *keyedRunner

	presence *presenceTracker
	typing   *typingCoordinator

	verifier auth.Verifier
	access   ConversationAccess
	contacts ContactResolver
	upgrader websocket.Upgrader

	opts     Options
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewHub(verifier auth.Verifier, access ConversationAccess, contacts ContactResolver, logger *zap.Logger, opts Options) *Hub {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		jobs:       newKeyedRunner(),
		presence:   newPresenceTracker(),
		verifier:   verifier,
		access:     access,
		contacts:   contacts,
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	h.typing = newTypingCoordinator(opts.TypingTimeout, h.typingExpired)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
		// only the fixed name is ever selected; bearer entries stay private
		Subprotocols: []string{auth.Subprotocol},
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	go h.run()

	return h
}

func getShard(roomKey string) uint32 {
	if roomKey == "" {
		return 0
	}
	sum := sha1.Sum([]byte(roomKey))
	return binary.BigEndian.Uint32(sum[:4]) % shardCount
}

// schedule queues fn behind earlier jobs with the same key and returns at once
func (h *Hub) schedule(key string, fn func()) {
	if !h.jobs.submit(key, fn) {
		h.logger.Debug("hub stopped, job dropped", zap.String("key", key))
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
			close(c.ready)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// attach registers a freshly upgraded client and reports whether the hub
// accepted it in time
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		return false
	case <-time.After(h.opts.RegisterTimeout):
		return false
	}

	select {
	case <-c.ready:
		return true
	case <-h.ctx.Done():
		return false
	case <-time.After(h.opts.RegisterTimeout):
		return false
	}
}

// detach queues c for removal; cleanup is idempotent
func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	case <-time.After(h.opts.RegisterTimeout):
		c.logger.Warn("failed to unregister client: timeout")
	}
}

// addClient joins the personal room first, then counts the connection
func (h *Hub) addClient(c *Client) {
	if c.IsClosed() {
		return
	}

	h.clientsMu.Lock()
	h.clients[c.ID] = c
	h.clientsMu.Unlock()

	h.joinRoom(personalRoom(c.UserID()), c)

	if h.presence.connect(c.identity) {
		identity := c.identity
		ev, err := event.New(event.EventUserOnline, event.UserOnline{
			UserID: identity.UserID,
			Name:   identity.Name,
			Role:   identity.Role,
		})
		if err == nil {
			h.schedule(personalRoom(identity.UserID), func() {
				h.broadcastPresence(identity.UserID, ev, nil)
			})
		}
	}

	c.logger.Info("client registered")
}

func (h *Hub) removeClient(c *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.clientsMu.Unlock()
		c.Close()
		return
	}
	delete(h.clients, c.ID)
	h.clientsMu.Unlock()

	// closed before membership is read so a concurrent join sees it
	c.Close()

	userID := c.UserID()
	for _, conversationID := range c.Conversations() {
		c.removeConversation(conversationID)
		h.leaveRoom(conversationRoom(conversationID), c)
		if !h.userInRoom(conversationRoom(conversationID), userID) {
			h.stopTyping(c.identity, conversationID)
		}
	}
	h.leaveRoom(personalRoom(userID), c)

	if h.presence.disconnect(userID) {
		ev, err := event.New(event.EventUserOffline, event.UserOffline{
			UserID: userID,
			Name:   c.identity.Name,
		})
		if err == nil {
			h.schedule(personalRoom(userID), func() {
				h.broadcastPresence(userID, ev, nil)
			})
		}
	}

	c.logger.Info("client removed")
}

// -----------------------------------------------------------------
// Rooms
// -----------------------------------------------------------------

// joinRoom is idempotent and reports whether c was newly added
func (h *Hub) joinRoom(key string, c *Client) bool {
	b := h.shards[getShard(key)]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[key]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[key] = room
	}
	if _, exists := room[c.ID]; exists {
		return false
	}
	room[c.ID] = c
	return true
}

func (h *Hub) leaveRoom(key string, c *Client) {
	b := h.shards[getShard(key)]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[key]
	if !ok {
		return
	}
	delete(room, c.ID)
	if len(room) == 0 {
		delete(b.rooms, key)
	}
}

func (h *Hub) roomClients(key string) []*Client {
	b := h.shards[getShard(key)]
	b.RLock()
	defer b.RUnlock()

	room := b.rooms[key]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) userInRoom(key, userID string) bool {
	for _, c := range h.roomClients(key) {
		if c.UserID() == userID {
			return true
		}
	}
	return false
}

// publish delivers ev to every member of the room for which skip is false and
// returns how many sockets accepted it. Nothing is queued for absent members
// and a member whose buffer is full is disconnected, so publish never waits.
func (h *Hub) publish(key string, ev event.WsEvent, skip func(*Client) bool) int {
	clients := h.roomClients(key)

	delivered := 0
	for _, c := range clients {
		if skip != nil && skip(c) {
			continue
		}
		if c.TrySend(ev) {
			delivered++
		}
	}
	return delivered
}

func exceptUser(userID string) func(*Client) bool {
	return func(c *Client) bool { return c.UserID() == userID }
}

func exceptClient(client *Client) func(*Client) bool {
	return func(c *Client) bool { return client != nil && c.ID == client.ID }
}

func (h *Hub) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, h.opts.OperationTimeout)
}

// Stop closes every client and waits for queued jobs to finish
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.typing.stopAll()

		h.clientsMu.RLock()
		for _, c := range h.clients {
			c.Close()
		}
		h.clientsMu.RUnlock()

		h.cancel()
		h.jobs.stop()
		h.logger.Info("hub stopped")
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
