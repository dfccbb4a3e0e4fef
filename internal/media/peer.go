// Package media adapts a peer-to-peer media connection to the call
// signaling state machine.
package media

import (
	"Campus/internal/model"
	"context"
)

// ConnectionState mirrors the peer connection lifecycle.
type ConnectionState string

const (
	StateNew          ConnectionState = "new"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateFailed       ConnectionState = "failed"
	StateClosed       ConnectionState = "closed"
)

// Terminal reports whether the connection can no longer carry media.
func (s ConnectionState) Terminal() bool {
	return s == StateFailed || s == StateClosed
}

// Peer is one side of a direct media session. CreateOffer and CreateAnswer
// also apply the description locally, which starts candidate gathering.
// Handlers must be registered before the first description is created.
type Peer interface {
	CreateOffer(ctx context.Context) (model.SessionDescription, error)
	CreateAnswer(ctx context.Context) (model.SessionDescription, error)
	SetRemoteDescription(desc model.SessionDescription) error
	AddRemoteCandidate(candidate model.CandidateInit) error
	OnLocalCandidate(fn func(model.CandidateInit))
	OnConnectionStateChange(fn func(ConnectionState))
	// Close stops local capture and tears the connection down.
	Close() error
}

// Factory creates a fresh peer for each call.
type Factory func() (Peer, error)
