package model

import "time"

// TypingSignal is the ephemeral "user is typing" flag. There is one signal
// per (conversation, user) pair; the last write wins.
type TypingSignal struct {
	ConversationID string    `json:"conversationId" bson:"conversation_id"`
	UserID         string    `json:"userId" bson:"user_id"`
	Typing         bool      `json:"typing" bson:"typing"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// TypingKey identifies a signal in the store.
func TypingKey(conversationID, userID string) string {
	return conversationID + "|" + userID
}
