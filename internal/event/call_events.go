package event

// Call Event Types - Client to Server
const (
	// EventCallCreate - Caller publishes an offer and gets a session id
	EventCallCreate = "call:create"

	// EventCallAnswer - Callee answers a session id shared out-of-band
	EventCallAnswer = "call:answer"

	// EventCallCandidate - Either side streams a local candidate
	EventCallCandidate = "call:candidate"

	// EventCallHangUp - Either side ends the call and purges the record
	EventCallHangUp = "call:hangup"
)

// Call Event Types - Server to Client
const (
	// EventCallCreated - Session record created, id can be shared
	EventCallCreated = "call:created"

	// EventCallOffer - Offer of the session the callee answered
	EventCallOffer = "call:offer"

	// EventCallAnswered - Notify caller that the answer is available
	EventCallAnswered = "call:answered"

	// EventCallRemoteCandidate - A remote candidate, in discovery order
	EventCallRemoteCandidate = "call:remote_candidate"

	// EventCallEnded - Session record no longer exists
	EventCallEnded = "call:ended"

	// EventCallError - Notify of call-related errors
	EventCallError = "call:error"
)

// IsCallEvent checks if an event is a call-related event
func IsCallEvent(eventType string) bool {
	switch eventType {
	case EventCallCreate,
		EventCallAnswer,
		EventCallCandidate,
		EventCallHangUp:
		return true
	default:
		return false
	}
}
