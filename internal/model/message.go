package model

import (
	"time"
)

// DeliveryState is the visibility of a message to its receiver. It only
// ever moves forward: sent -> delivered -> seen.
type DeliveryState string

const (
	DeliverySent      DeliveryState = "sent"
	DeliveryDelivered DeliveryState = "delivered"
	DeliverySeen      DeliveryState = "seen"
)

// Rank orders delivery states. Unknown states rank below sent.
func (s DeliveryState) Rank() int {
	switch s {
	case DeliverySent:
		return 1
	case DeliveryDelivered:
		return 2
	case DeliverySeen:
		return 3
	default:
		return 0
	}
}

// Before reports whether s is strictly earlier than other.
func (s DeliveryState) Before(other DeliveryState) bool {
	return s.Rank() < other.Rank()
}

// StatesBefore lists the states a message may advance from to reach target.
func StatesBefore(target DeliveryState) []DeliveryState {
	states := make([]DeliveryState, 0, 2)
	for _, s := range []DeliveryState{DeliverySent, DeliveryDelivered} {
		if s.Before(target) {
			states = append(states, s)
		}
	}
	return states
}

// Message represents a chat message in a two-party conversation
type Message struct {
	ID             string        `json:"id" bson:"_id"`
	ConversationID string        `json:"conversationId" bson:"conversation_id"`
	SenderID       string        `json:"senderId" bson:"sender_id"`
	ReceiverID     string        `json:"receiverId" bson:"receiver_id"`
	Text           string        `json:"text" bson:"text"`
	CreatedAt      time.Time     `json:"createdAt" bson:"created_at"` // assigned by the store
	EditedAt       *time.Time    `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	DeliveryState  DeliveryState `json:"deliveryState" bson:"delivery_state"`
	Seq            int64         `json:"seq" bson:"seq"` // store insertion order, breaks createdAt ties
}

// Less orders messages by createdAt, then by insertion sequence.
func (m Message) Less(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
