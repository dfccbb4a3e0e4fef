package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"` // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"`
	Chats       ChatStats       `json:"chats"`
	Calls       CallStats       `json:"calls"`
	Clients     []ClientInfo    `json:"clients"`
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // sockets currently connected
	TotalUsers     int `json:"totalUsers"`     // distinct users behind those sockets
}

// ChatStats holds open conversation view statistics
type ChatStats struct {
	OpenSessions  int `json:"openSessions"`
	Conversations int `json:"conversations"` // distinct conversations with an open view
}

// CallStats holds signaling relay statistics
type CallStats struct {
	WatchedSessions int      `json:"watchedSessions"`
	SessionIDs      []string `json:"sessionIds"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID      string   `json:"clientId"`
	UserID        string   `json:"userId"`
	OpenPeers     []string `json:"openPeers"`
	CallSessionID []string `json:"callSessionIds,omitempty"`
}
