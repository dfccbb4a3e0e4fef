package model

import (
	"time"
)

// CallState is the lifecycle of a call session record
type CallState string

const (
	CallNegotiating CallState = "negotiating"
	CallActive      CallState = "active"
	CallEnded       CallState = "ended"
)

// CandidateSide names the candidate set a candidate belongs to
type CandidateSide string

const (
	SideOfferer  CandidateSide = "offerer"
	SideAnswerer CandidateSide = "answerer"
)

// Valid reports whether s is one of the two known sides.
func (s CandidateSide) Valid() bool {
	return s == SideOfferer || s == SideAnswerer
}

// Opposite returns the side the remote party writes to.
func (s CandidateSide) Opposite() CandidateSide {
	if s == SideOfferer {
		return SideAnswerer
	}
	return SideOfferer
}

// SessionDescription is an opaque media description (offer or answer)
type SessionDescription struct {
	Type string `json:"type" bson:"type"` // "offer" or "answer"
	SDP  string `json:"sdp" bson:"sdp"`
}

// CandidateInit is a single network-reachability option as produced by the
// media layer, in the shape browsers use for RTCIceCandidateInit.
type CandidateInit struct {
	Candidate        string  `json:"candidate" bson:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty" bson:"sdp_mid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty" bson:"sdp_mline_index,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty" bson:"username_fragment,omitempty"`
}

// Candidate is a stored candidate. Seq preserves discovery order per side.
type Candidate struct {
	ID        string        `json:"id" bson:"_id"`
	SessionID string        `json:"sessionId" bson:"session_id"`
	Side      CandidateSide `json:"side" bson:"side"`
	Seq       int64         `json:"seq" bson:"seq"`
	Init      CandidateInit `json:"init" bson:"init"`
	CreatedAt time.Time     `json:"createdAt" bson:"created_at"`
}

// CallSession is the signaling record two peers use to negotiate a direct
// media session. It is deleted, not archived, when the call ends.
type CallSession struct {
	ID        string              `json:"id" bson:"_id"`
	CallerID  string              `json:"callerId" bson:"caller_id"`
	CalleeID  string              `json:"calleeId,omitempty" bson:"callee_id,omitempty"` // optional, no ringing
	Offer     *SessionDescription `json:"offer,omitempty" bson:"offer,omitempty"`
	Answer    *SessionDescription `json:"answer,omitempty" bson:"answer,omitempty"`
	State     CallState           `json:"state" bson:"state"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updated_at"`

	// per-side counters used to assign candidate sequence numbers
	OffererCandidates  int64 `json:"offererCandidates" bson:"offerer_candidates"`
	AnswererCandidates int64 `json:"answererCandidates" bson:"answerer_candidates"`
}

// StaleAt reports whether an unanswered session created before cutoff
// should be treated as ended.
func (s *CallSession) StaleAt(cutoff time.Time) bool {
	return s.State == CallNegotiating && s.Answer == nil && s.CreatedAt.Before(cutoff)
}
