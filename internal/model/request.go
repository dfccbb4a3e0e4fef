package model

// -----------------------------------------------------------------
// REST Request Bodies
// -----------------------------------------------------------------

// SendMessageRequest posts a message to the conversation with a peer
type SendMessageRequest struct {
	SenderID string `json:"senderId" binding:"required"`
	Text     string `json:"text"`
}

// EditMessageRequest replaces the text of an own message
type EditMessageRequest struct {
	UserID string `json:"userId" binding:"required"`
	Text   string `json:"text"`
}

// CreateCallRequest publishes an offer under a new call session
type CreateCallRequest struct {
	CallerID string             `json:"callerId" binding:"required"`
	CalleeID string             `json:"calleeId,omitempty"`
	Offer    SessionDescription `json:"offer"`
}

// AnswerCallRequest publishes the answer for a session id
type AnswerCallRequest struct {
	CalleeID string             `json:"calleeId"`
	Answer   SessionDescription `json:"answer"`
}

// AddCandidateRequest appends a candidate to one side's set
type AddCandidateRequest struct {
	Side      CandidateSide `json:"side" binding:"required"`
	Candidate CandidateInit `json:"candidate"`
}
