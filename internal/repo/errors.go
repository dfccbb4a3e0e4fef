package repo

import "errors"

var (
	ErrInvalidMessage        = errors.New("invalid message: conversation, sender and receiver are required")
	ErrInvalidConversationID = errors.New("invalid conversation ID: cannot be empty")
	ErrMessageNotFound       = errors.New("message not found")
	ErrNotMessageSender      = errors.New("only the sender can edit a message")
	ErrNotParticipant        = errors.New("requester is not a participant of the conversation")
	ErrCallSessionNotFound   = errors.New("call session not found")
	ErrCallSessionExists     = errors.New("call session already exists")
	ErrCallAlreadyAnswered   = errors.New("call session already answered")
	ErrOperationTimeout      = errors.New("operation timeout exceeded")
)
