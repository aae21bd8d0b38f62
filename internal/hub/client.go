package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/event"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one live socket. A user with several devices has several clients.
type Client struct {
	ID       string
	identity auth.Identity
	conn     *websocket.Conn
	hub      *Hub
	egress   chan event.WsEvent
	inbound  chan event.WsEvent
	logger   *zap.Logger

	// conversation ids this socket joined
	conversations   map[string]struct{}
	conversationsMu sync.RWMutex

	ctx            context.Context
	cancel         context.CancelFunc
	once           sync.Once
	ready          chan struct{}
	connClosed     chan struct{}
	connClosedOnce sync.Once
}

func newClient(identity auth.Identity, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	id := uuid.New().String()

	return &Client{
		ID:            id,
		identity:      identity,
		conn:          conn,
		hub:           h,
		egress:        make(chan event.WsEvent, h.opts.SendBuffer),
		inbound:       make(chan event.WsEvent, h.opts.QueueSize),
		logger:        h.logger.With(zap.String("client_id", id), zap.String("user_id", identity.UserID)),
		conversations: make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan struct{}),
		connClosed:    make(chan struct{}),
	}
}

// UserID of the authenticated user bound at handshake
func (c *Client) UserID() string { return c.identity.UserID }

// Identity bound at handshake; it never changes for the life of the socket
func (c *Client) Identity() auth.Identity { return c.identity }

func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				c.logger.Debug("client disconnected")
				return
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				c.logger.Info("client heartbeat expired")
				return
			}

			if websocket.IsUnexpectedCloseError(err) {
				c.logger.Debug("unexpected close", zap.Error(err))
				return
			}

			// malformed frames are reported and the socket stays open
			if isDecodeError(err) {
				c.sendError("invalid_payload", "frame is not a valid event envelope")
				continue
			}

			c.logger.Debug("read failed", zap.Error(err))
			return
		}

		// any inbound frame proves liveness
		_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))

		if !c.enqueue(ev) {
			c.logger.Warn("inbound queue full, dropping client")
			return
		}
	}
}

// enqueue hands an inbound event to this client's dispatch loop
func (c *Client) enqueue(ev event.WsEvent) bool {
	t := time.NewTimer(500 * time.Millisecond)
	defer t.Stop()

	select {
	case c.inbound <- ev:
		return true
	case <-t.C:
		return false
	case <-c.ctx.Done():
		return false
	}
}

// dispatchLoop handles this socket's events one at a time. Store calls made
// here hold up this socket only.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.inbound:
			c.hub.handleEvent(ev, c)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.hub.opts.WriteWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
}

// TrySend queues ev without waiting. A client whose buffer is full is too slow
// to keep up and is disconnected.
func (c *Client) TrySend(ev event.WsEvent) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.egress <- ev:
		return true
	default:
		c.logger.Warn("egress full, disconnecting slow client")
		c.Close()
		return false
	}
}

// SafeSend queues ev for the write pump. It reports false when the client is
// closed or the egress buffer stayed full for the whole timeout, in which case
// the client is dropped.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.egress <- ev:
		return true
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		return false
	case <-t.C:
		c.logger.Warn("egress full, disconnecting slow client")
		c.Close()
		return false
	}
}

// Close stops both pumps. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		if c.conn == nil {
			return
		}

		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				c.logger.Warn("safety timeout: force closed connection")
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	return c.ctx.Err() != nil
}

func (c *Client) sendError(code, message string) {
	ev, err := event.New(event.EventError, model.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.SafeSend(ev, c.hub.opts.SendTimeout)
}

func (c *Client) addConversation(conversationID string) bool {
	c.conversationsMu.Lock()
	defer c.conversationsMu.Unlock()
	if _, ok := c.conversations[conversationID]; ok {
		return false
	}
	c.conversations[conversationID] = struct{}{}
	return true
}

func (c *Client) removeConversation(conversationID string) bool {
	c.conversationsMu.Lock()
	defer c.conversationsMu.Unlock()
	if _, ok := c.conversations[conversationID]; !ok {
		return false
	}
	delete(c.conversations, conversationID)
	return true
}

func (c *Client) inConversation(conversationID string) bool {
	c.conversationsMu.RLock()
	defer c.conversationsMu.RUnlock()
	_, ok := c.conversations[conversationID]
	return ok
}

// Conversations lists joined conversation ids, sorted
func (c *Client) Conversations() []string {
	c.conversationsMu.RLock()
	ids := make([]string, 0, len(c.conversations))
	for id := range c.conversations {
		ids = append(ids, id)
	}
	c.conversationsMu.RUnlock()
	sort.Strings(ids)
	return ids
}
