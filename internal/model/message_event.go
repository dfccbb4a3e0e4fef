package model

// -----------------------------------------------------------------
// WebSocket Event Payloads - Chat, Client to Server
// -----------------------------------------------------------------

// ChatOpenPayload opens (or closes) the conversation view with a peer
type ChatOpenPayload struct {
	PeerID string `json:"peerId"`
}

// ChatFocusPayload tells the server whether the view is actively rendered
type ChatFocusPayload struct {
	PeerID  string `json:"peerId"`
	Focused bool   `json:"focused"`
}

// ChatSendPayload carries a new message
type ChatSendPayload struct {
	PeerID string `json:"peerId"`
	Text   string `json:"text"`
}

// ChatEditPayload replaces the text of an own message
type ChatEditPayload struct {
	PeerID    string `json:"peerId"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// ChatDeletePayload removes a message from the conversation
type ChatDeletePayload struct {
	PeerID    string `json:"peerId"`
	MessageID string `json:"messageId"`
}

// ChatTypingPayload - for typing status
type ChatTypingPayload struct {
	PeerID string `json:"peerId"`
	Typing bool   `json:"typing"`
}

// -----------------------------------------------------------------
// WebSocket Event Payloads - Chat, Server to Client
// -----------------------------------------------------------------

// ChatSnapshotEvent is the ordered message log of an open conversation
type ChatSnapshotEvent struct {
	ConversationID string    `json:"conversationId"`
	PeerID         string    `json:"peerId"`
	Messages       []Message `json:"messages"`
	Timestamp      int64     `json:"timestamp"`
}

// ChatTypingEvent lists the peers currently typing in a conversation
type ChatTypingEvent struct {
	ConversationID string         `json:"conversationId"`
	PeerID         string         `json:"peerId"`
	Typing         []TypingSignal `json:"typing"`
}

// ChatErrorEvent is sent when a chat operation fails
type ChatErrorEvent struct {
	PeerID    string `json:"peerId,omitempty"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}
