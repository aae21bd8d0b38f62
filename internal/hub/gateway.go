package hub

import (
	"errors"
	"net/http"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"

	"go.uber.org/zap"
)

// ServeWS authenticates the handshake and only then upgrades it. A rejected
// request never touches rooms or presence.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, status, err := h.authenticate(r)
	if err != nil {
		h.logger.Info("socket handshake rejected",
			zap.Int("status", status),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(*identity, conn, h)
	if !h.attach(c) {
		c.logger.Warn("failed to register client: timeout")
		c.Close()
		h.detach(c)
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.dispatchLoop()
	go c.readPump()
}

func (h *Hub) authenticate(r *http.Request) (*auth.Identity, int, error) {
	credential := auth.CredentialFromRequest(r)
	if credential == "" {
		return nil, http.StatusUnauthorized, auth.ErrMissingCredential
	}

	identity, err := h.verifier.Verify(r.Context(), credential)
	switch {
	case err == nil:
		return identity, http.StatusOK, nil
	case errors.Is(err, auth.ErrInactiveAccount):
		return nil, http.StatusForbidden, err
	case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, auth.ErrInvalidCredential):
		return nil, http.StatusUnauthorized, err
	default:
		return nil, http.StatusServiceUnavailable, err
	}
}
