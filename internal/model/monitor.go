package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy", "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Rooms       RoomStats       `json:"rooms"`       // Personal and conversation room stats
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
	StatusCount map[string]int  `json:"statusCount"` // Users by explicit presence status
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnections int `json:"totalConnections"` // Live sockets
	TotalUsers       int `json:"totalUsers"`       // Distinct users with at least one socket
	MultiDeviceUsers int `json:"multiDeviceUsers"` // Users with more than one socket
}

// RoomStats holds room statistics
type RoomStats struct {
	PersonalRooms     int        `json:"personalRooms"`
	ConversationRooms int        `json:"conversationRooms"`
	RoomDetails       []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	Key       string   `json:"key"`
	Kind      string   `json:"kind"` // "personal" or "conversation"
	Members   int      `json:"members"`
	MemberIDs []string `json:"memberIds"` // Distinct user ids in the room
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID      string   `json:"clientId"`
	UserID        string   `json:"userId"`
	Role          string   `json:"role"`
	Conversations []string `json:"conversations"`
}
