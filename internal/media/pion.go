package media

import (
	"Campus/internal/model"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"
)

const frameDuration = 20 * time.Millisecond

// opusSilence is a single Opus frame encoding 20ms of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// PionPeer is a Peer backed by a pion PeerConnection with one outgoing
// audio track. Until a real source is attached the track carries silence.
type PionPeer struct {
	pc     *webrtc.PeerConnection
	track  *webrtc.TrackLocalStaticSample
	logger *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPionFactory returns a Factory configured with the given STUN/TURN urls.
func NewPionFactory(iceServers []string, logger *zap.Logger) Factory {
	return func() (Peer, error) {
		return NewPionPeer(iceServers, logger)
	}
}

func NewPionPeer(iceServers []string, logger *zap.Logger) (*PionPeer, error) {
	config := webrtc.Configuration{}
	if len(iceServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "campus",
	)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	sender, err := pc.AddTrack(track)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("add audio track: %w", err)
	}

	p := &PionPeer{
		pc:     pc,
		track:  track,
		logger: logger,
		done:   make(chan struct{}),
	}

	p.wg.Add(2)
	go p.drainRTCP(sender)
	go p.capture()
	return p, nil
}

func (p *PionPeer) CreateOffer(_ context.Context) (model.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return model.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return model.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return model.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (p *PionPeer) CreateAnswer(_ context.Context) (model.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return model.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return model.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return model.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

func (p *PionPeer) SetRemoteDescription(desc model.SessionDescription) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	})
}

func (p *PionPeer) AddRemoteCandidate(c model.CandidateInit) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	})
}

// OnLocalCandidate fires once per gathered candidate. The end-of-gathering
// marker is not forwarded.
func (p *PionPeer) OnLocalCandidate(fn func(model.CandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		fn(model.CandidateInit{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		})
	})
}

func (p *PionPeer) OnConnectionStateChange(fn func(ConnectionState)) {
	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		fn(convertState(s))
	})
}

// Close stops the capture loop, then closes the connection.
func (p *PionPeer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.pc.Close()
		p.wg.Wait()
	})
	return err
}

func (p *PionPeer) capture() {
	defer p.wg.Done()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if err := p.track.WriteSample(pionmedia.Sample{Data: opusSilence, Duration: frameDuration}); err != nil {
				p.logger.Debug("audio sample dropped", zap.Error(err))
			}
		}
	}
}

// drainRTCP reads incoming RTCP so interceptors keep working. It returns
// once the connection is closed.
func (p *PionPeer) drainRTCP(sender *webrtc.RTPSender) {
	defer p.wg.Done()

	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func convertState(s webrtc.PeerConnectionState) ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateNew
	}
}
