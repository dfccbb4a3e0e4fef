package model

import (
	"sort"
	"strings"
	"time"
)

const conversationKeySeparator = "_"

// ConversationKey returns the canonical id of the conversation between two
// participants. The key does not depend on argument order.
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, conversationKeySeparator)
}

// ChatSummary is the per-user inbox preview of the last message exchanged
// with one peer. It is a cache derived from the message log, never authoritative.
type ChatSummary struct {
	OwnerID        string        `json:"ownerId" bson:"owner_id"`
	PeerID         string        `json:"peerId" bson:"peer_id"`
	ConversationID string        `json:"conversationId" bson:"conversation_id"`
	LastMessageID  string        `json:"lastMessageId" bson:"last_message_id"`
	LastText       string        `json:"lastText" bson:"last_text"`
	LastSenderID   string        `json:"lastSenderId" bson:"last_sender_id"`
	LastAt         time.Time     `json:"lastAt" bson:"last_at"`
	DeliveryState  DeliveryState `json:"deliveryState" bson:"delivery_state"`
	UpdatedAt      time.Time     `json:"updatedAt" bson:"updated_at"`
}

// SummaryFor builds the summary owner keeps about the conversation that
// ends with last.
func SummaryFor(ownerID string, last Message) ChatSummary {
	peerID := last.ReceiverID
	if ownerID == last.ReceiverID {
		peerID = last.SenderID
	}
	return ChatSummary{
		OwnerID:        ownerID,
		PeerID:         peerID,
		ConversationID: last.ConversationID,
		LastMessageID:  last.ID,
		LastText:       last.Text,
		LastSenderID:   last.SenderID,
		LastAt:         last.CreatedAt,
		DeliveryState:  last.DeliveryState,
	}
}
