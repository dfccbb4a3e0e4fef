package event

import "encoding/json"

// WsEvent is the envelope of every frame exchanged over the socket
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Chat Event Types - Client to Server
const (
	EventChatOpen   = "chat:open"
	EventChatClose  = "chat:close"
	EventChatFocus  = "chat:focus"
	EventChatSend   = "chat:send"
	EventChatEdit   = "chat:edit"
	EventChatDelete = "chat:delete"
	EventChatTyping = "chat:typing"
)

// Chat Event Types - Server to Client
const (
	// EventChatSnapshot - ordered message log of an open conversation
	EventChatSnapshot = "chat:snapshot"

	// EventChatTypingState - peers currently typing in an open conversation
	EventChatTypingState = "chat:typing_state"

	// EventChatError - a chat operation failed
	EventChatError = "chat:error"
)

// IsChatEvent checks if an event is a chat event sent by a client
func IsChatEvent(eventType string) bool {
	switch eventType {
	case EventChatOpen,
		EventChatClose,
		EventChatFocus,
		EventChatSend,
		EventChatEdit,
		EventChatDelete,
		EventChatTyping:
		return true
	default:
		return false
	}
}

// New marshals payload into an event envelope.
func New(name string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: raw}, nil
}
