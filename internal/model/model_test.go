package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "alice_bob", ConversationKey("alice", "bob"))
	assert.Equal(t, ConversationKey("alice", "bob"), ConversationKey("bob", "alice"))
}

func TestDeliveryStateOrdering(t *testing.T) {
	assert.True(t, DeliverySent.Before(DeliveryDelivered))
	assert.True(t, DeliveryDelivered.Before(DeliverySeen))
	assert.False(t, DeliverySeen.Before(DeliverySent))
	assert.False(t, DeliverySeen.Before(DeliverySeen))

	assert.Equal(t, []DeliveryState{DeliverySent}, StatesBefore(DeliveryDelivered))
	assert.Equal(t, []DeliveryState{DeliverySent, DeliveryDelivered}, StatesBefore(DeliverySeen))
	assert.Empty(t, StatesBefore(DeliverySent))
}

func TestMessageLess(t *testing.T) {
	now := time.Now()
	a := Message{CreatedAt: now, Seq: 1}
	b := Message{CreatedAt: now, Seq: 2}
	c := Message{CreatedAt: now.Add(-time.Second), Seq: 3}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, c.Less(a))
}

func TestSummaryFor(t *testing.T) {
	msg := Message{
		ID:             "m1",
		ConversationID: ConversationKey("alice", "bob"),
		SenderID:       "alice",
		ReceiverID:     "bob",
		Text:           "hi",
		DeliveryState:  DeliverySent,
	}

	sender := SummaryFor("alice", msg)
	receiver := SummaryFor("bob", msg)

	assert.Equal(t, "bob", sender.PeerID)
	assert.Equal(t, "alice", receiver.PeerID)
	assert.Equal(t, "hi", receiver.LastText)
	assert.Equal(t, "alice", receiver.LastSenderID)
}

func TestCallSessionStaleAt(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	s := &CallSession{State: CallNegotiating, CreatedAt: created}

	assert.True(t, s.StaleAt(time.Now()))
	assert.False(t, s.StaleAt(created.Add(-time.Minute)))

	s.Answer = &SessionDescription{Type: "answer", SDP: "v=0"}
	s.State = CallActive
	assert.False(t, s.StaleAt(time.Now()))
}

func TestCandidateSide(t *testing.T) {
	assert.True(t, SideOfferer.Valid())
	assert.False(t, CandidateSide("both").Valid())
	assert.Equal(t, SideAnswerer, SideOfferer.Opposite())
	assert.Equal(t, SideOfferer, SideAnswerer.Opposite())
}
