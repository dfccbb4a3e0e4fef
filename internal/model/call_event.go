package model

// -----------------------------------------------------------------
// WebSocket Event Payloads - Calls, Client to Server
// -----------------------------------------------------------------

// CallCreatePayload is sent by the caller to publish an offer
type CallCreatePayload struct {
	CalleeID string             `json:"calleeId,omitempty"`
	Offer    SessionDescription `json:"offer"`
}

// CallAnswerPayload is sent by the callee with the shared session id
type CallAnswerPayload struct {
	SessionID string             `json:"sessionId"`
	Answer    SessionDescription `json:"answer"`
}

// CallCandidatePayload streams one local candidate into a candidate set
type CallCandidatePayload struct {
	SessionID string        `json:"sessionId"`
	Side      CandidateSide `json:"side"`
	Candidate CandidateInit `json:"candidate"`
}

// CallHangUpPayload ends a call and purges its record
type CallHangUpPayload struct {
	SessionID string `json:"sessionId"`
}

// -----------------------------------------------------------------
// WebSocket Event Payloads - Calls, Server to Client
// -----------------------------------------------------------------

// CallCreatedEvent returns the session id the caller shares out-of-band
type CallCreatedEvent struct {
	Session   CallSession `json:"session"`
	Timestamp int64       `json:"timestamp"`
}

// CallAnsweredEvent is sent to the caller once the answer is published
type CallAnsweredEvent struct {
	SessionID string             `json:"sessionId"`
	Answer    SessionDescription `json:"answer"`
	Timestamp int64              `json:"timestamp"`
}

// CallOfferEvent is sent to the callee after it answered, echoing the offer
type CallOfferEvent struct {
	SessionID string             `json:"sessionId"`
	Offer     SessionDescription `json:"offer"`
	Timestamp int64              `json:"timestamp"`
}

// CallCandidateEvent relays one remote candidate in discovery order
type CallCandidateEvent struct {
	SessionID string        `json:"sessionId"`
	Side      CandidateSide `json:"side"`
	Seq       int64         `json:"seq"`
	Candidate CandidateInit `json:"candidate"`
}

// CallEndedEvent is sent when the session record disappears
type CallEndedEvent struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// CallErrorEvent is sent when a call error occurs
type CallErrorEvent struct {
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
