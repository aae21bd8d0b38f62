package auth

import (
	"net/http"
	"strings"
)

// protocolPrefix lets browser clients pass the token as a websocket subprotocol
const protocolPrefix = "bearer."

// Subprotocol is the name a browser offers next to its bearer entry. The
// server selects it, so the token entry is never echoed back.
const Subprotocol = "alumni.chat.v1"

// CredentialFromRequest returns the first credential found in the Authorization
// header, the token query parameter or the websocket subprotocol list
func CredentialFromRequest(r *http.Request) string {
	return findToken(r, tokenFromHeader, tokenFromQuery, tokenFromProtocol)
}

func tokenFromHeader(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	parts := strings.Fields(bearer)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func tokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

func tokenFromProtocol(r *http.Request) string {
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(strings.ToLower(p), protocolPrefix) {
				return p[len(protocolPrefix):]
			}
		}
	}
	return ""
}

func findToken(r *http.Request, findTokenFns ...func(r *http.Request) string) string {
	for _, fn := range findTokenFns {
		if token := fn(r); token != "" {
			return token
		}
	}
	return ""
}
