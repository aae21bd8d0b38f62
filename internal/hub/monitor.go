package hub

import (
	"sort"
	"strings"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats := ms.getConnectionStats()

	status := "healthy"
	if connectionStats.TotalConnections == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Rooms:       ms.getRoomStats(),
		Clients:     ms.getClientList(),
		StatusCount: ms.getStatusCount(),
	}
}

func (ms *MonitorService) getConnectionStats() model.ConnectionStats {
	stats := model.ConnectionStats{}
	for _, p := range ms.hub.presence.snapshot() {
		stats.TotalUsers++
		stats.TotalConnections += p.Connections
		if p.Connections > 1 {
			stats.MultiDeviceUsers++
		}
	}
	return stats
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for key, room := range bucket.rooms {
			users := make(map[string]struct{}, len(room))
			for _, c := range room {
				users[c.UserID()] = struct{}{}
			}
			memberIDs := make([]string, 0, len(users))
			for id := range users {
				memberIDs = append(memberIDs, id)
			}
			sort.Strings(memberIDs)

			kind := "conversation"
			if strings.HasPrefix(key, personalPrefix) {
				kind = "personal"
				stats.PersonalRooms++
			} else {
				stats.ConversationRooms++
			}

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				Key:       key,
				Kind:      kind,
				Members:   len(room),
				MemberIDs: memberIDs,
			})
		}
		bucket.RUnlock()
	}

	sort.Slice(stats.RoomDetails, func(i, j int) bool {
		return stats.RoomDetails[i].Key < stats.RoomDetails[j].Key
	})
	return stats
}

func (ms *MonitorService) getClientList() []model.ClientInfo {
	ms.hub.clientsMu.RLock()
	defer ms.hub.clientsMu.RUnlock()

	clients := make([]model.ClientInfo, 0, len(ms.hub.clients))
	for _, c := range ms.hub.clients {
		clients = append(clients, model.ClientInfo{
			ClientID:      c.ID,
			UserID:        c.UserID(),
			Role:          c.identity.Role,
			Conversations: c.Conversations(),
		})
	}
	return clients
}

// getStatusCount returns count of users by explicit status
func (ms *MonitorService) getStatusCount() map[string]int {
	statusCount := map[string]int{
		model.PresenceOnline:  0,
		model.PresenceAway:    0,
		model.PresenceBusy:    0,
		model.PresenceOffline: 0,
	}
	for _, p := range ms.hub.presence.snapshot() {
		statusCount[p.Status]++
	}
	return statusCount
}
