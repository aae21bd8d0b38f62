package model

// Presence statuses a client may announce
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// ValidPresenceStatus reports whether s is an accepted explicit status
func ValidPresenceStatus(s string) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy, PresenceOffline:
		return true
	}
	return false
}

// PresenceInfo is the aggregated presence of one user across connections
type PresenceInfo struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}
