package hub

import (
	"Campus/internal/model"
	"sort"
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
	clients := ms.hub.clients()
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].userID != clients[j].userID {
			return clients[i].userID < clients[j].userID
		}
		return clients[i].ID < clients[j].ID
	})

	users := make(map[string]struct{})
	conversations := make(map[string]struct{})
	sessions := make(map[string]struct{})

	resp := model.MonitorResponse{
		Status:  "healthy",
		Clients: make([]model.ClientInfo, 0, len(clients)),
		Calls:   model.CallStats{SessionIDs: make([]string, 0)},
	}

	for _, c := range clients {
		users[c.userID] = struct{}{}

		peers := c.openPeers()
		for _, peer := range peers {
			if s := c.session(peer); s != nil {
				conversations[s.ConversationID()] = struct{}{}
			}
		}
		resp.Chats.OpenSessions += len(peers)

		relayed := c.relayedSessions()
		for _, id := range relayed {
			sessions[id] = struct{}{}
		}

		resp.Clients = append(resp.Clients, model.ClientInfo{
			ClientID:      c.ID,
			UserID:        c.userID,
			OpenPeers:     peers,
			CallSessionID: relayed,
		})
	}

	resp.Connections = model.ConnectionStats{
		TotalConnected: len(clients),
		TotalUsers:     len(users),
	}
	resp.Chats.Conversations = len(conversations)

	for id := range sessions {
		resp.Calls.SessionIDs = append(resp.Calls.SessionIDs, id)
	}
	sort.Strings(resp.Calls.SessionIDs)
	resp.Calls.WatchedSessions = len(resp.Calls.SessionIDs)

	if resp.Connections.TotalConnected == 0 {
		resp.Status = "idle"
	}
	return resp
}
