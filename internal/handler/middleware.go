package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer credential with the same verifier the
// socket gateway uses
func AuthMiddleware(verifier auth.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := auth.CredentialFromRequest(c.Request)
		if credential == "" {
			abortWith(c, http.StatusUnauthorized, nil, "Authentication required")
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), credential)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInactiveAccount):
			abortWith(c, http.StatusForbidden, nil, "Account is not active")
			return
		case errors.Is(err, auth.ErrMissingCredential), errors.Is(err, auth.ErrInvalidCredential):
			abortWith(c, http.StatusUnauthorized, nil, "Authentication required")
			return
		default:
			logger.Error("credential check failed", zap.Error(err))
			abortWith(c, http.StatusServiceUnavailable, nil, "Authentication unavailable")
			return
		}

		c.Set(identityKey, *identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware
func CurrentIdentity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := CurrentIdentity(c); id.UserID != "" {
			fields = append(fields, zap.String("user_id", id.UserID))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
