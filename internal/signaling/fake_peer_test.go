package signaling

import (
	"context"
	"sync"

	"Campus/internal/media"
	"Campus/internal/model"
)

// fakePeer stands in for a media connection. Tests trigger candidate
// gathering and connection state changes by hand.
type fakePeer struct {
	name string

	mu       sync.Mutex
	remote   *model.SessionDescription
	applied  []string
	closed   bool
	onLocal  func(model.CandidateInit)
	onState  func(media.ConnectionState)
	rejected error
}

func newFakePeer(name string) *fakePeer {
	return &fakePeer{name: name}
}

func (p *fakePeer) CreateOffer(context.Context) (model.SessionDescription, error) {
	return model.SessionDescription{Type: "offer", SDP: "v=0 " + p.name}, nil
}

func (p *fakePeer) CreateAnswer(context.Context) (model.SessionDescription, error) {
	return model.SessionDescription{Type: "answer", SDP: "v=0 " + p.name}, nil
}

func (p *fakePeer) SetRemoteDescription(desc model.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rejected != nil {
		return p.rejected
	}
	p.remote = &desc
	return nil
}

func (p *fakePeer) AddRemoteCandidate(c model.CandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = append(p.applied, c.Candidate)
	return nil
}

func (p *fakePeer) OnLocalCandidate(fn func(model.CandidateInit)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLocal = fn
}

func (p *fakePeer) OnConnectionStateChange(fn func(media.ConnectionState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = fn
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) gather(candidates ...string) {
	p.mu.Lock()
	fn := p.onLocal
	p.mu.Unlock()
	for _, c := range candidates {
		fn(model.CandidateInit{Candidate: c})
	}
}

func (p *fakePeer) setState(s media.ConnectionState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	fn(s)
}

func (p *fakePeer) remoteDescription() *model.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *fakePeer) appliedCandidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.applied...)
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
