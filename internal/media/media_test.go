package media

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConvertState(t *testing.T) {
	tests := []struct {
		in   webrtc.PeerConnectionState
		want ConnectionState
	}{
		{webrtc.PeerConnectionStateNew, StateNew},
		{webrtc.PeerConnectionStateConnecting, StateConnecting},
		{webrtc.PeerConnectionStateConnected, StateConnected},
		{webrtc.PeerConnectionStateDisconnected, StateDisconnected},
		{webrtc.PeerConnectionStateFailed, StateFailed},
		{webrtc.PeerConnectionStateClosed, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, convertState(tt.in))
		})
	}
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateDisconnected.Terminal())
}

func TestPionOfferAnswer(t *testing.T) {
	caller, err := NewPionPeer(nil, zap.NewNop())
	require.NoError(t, err)
	defer caller.Close()

	callee, err := NewPionPeer(nil, zap.NewNop())
	require.NoError(t, err)
	defer callee.Close()

	ctx := context.Background()
	offer, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offer", offer.Type)
	assert.Contains(t, offer.SDP, "opus")

	require.NoError(t, callee.SetRemoteDescription(offer))
	answer, err := callee.CreateAnswer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "answer", answer.Type)

	require.NoError(t, caller.SetRemoteDescription(answer))
	require.NoError(t, caller.Close())
	require.NoError(t, caller.Close())
}
