package hub

import (
	"Campus/internal/chat"
	"Campus/internal/event"
	"Campus/internal/model"
	"Campus/internal/presence"
	"Campus/internal/repo/memory"
	"Campus/internal/signaling"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	hub      *Hub
	server   *httptest.Server
	messages *memory.MessageRepository
	calls    *memory.CallRepository
}

func newTestEnv(t *testing.T, config Config) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	messages := memory.NewMessageRepository()
	chats := chat.NewService(messages, memory.NewSummaryRepository(), chat.DefaultMaxMessageLength, logger)
	tracker := presence.NewTracker(memory.NewTypingRepository(), 0, logger)
	calls := memory.NewCallRepository()
	exchange := signaling.NewExchange(calls, signaling.DefaultStaleTTL, logger)

	if config.QuietInterval == 0 {
		config.QuietInterval = presence.DefaultQuietInterval
	}
	h := NewHub(chats, tracker, exchange, config, logger)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("userId"))
	}))

	t.Cleanup(func() {
		h.Stop()
		server.Close()
	})
	return &testEnv{hub: h, server: server, messages: messages, calls: calls}
}

func (e *testEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, name string, payload any) {
	t.Helper()
	ev, err := event.New(name, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ev))
}

// expect reads frames until one named name satisfies match, failing after
// a few seconds.
func expect[T any](t *testing.T, conn *websocket.Conn, name string, match func(T) bool) T {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev event.WsEvent
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", name)
		if ev.Event != name {
			continue
		}
		var payload T
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		if match == nil || match(payload) {
			return payload
		}
	}
}

func TestChatOverSocket(t *testing.T) {
	env := newTestEnv(t, Config{})
	alice := env.dial(t, "alice")
	bob := env.dial(t, "bob")

	send(t, alice, event.EventChatOpen, model.ChatOpenPayload{PeerID: "bob"})
	first := expect[model.ChatSnapshotEvent](t, alice, event.EventChatSnapshot, nil)
	assert.Equal(t, model.ConversationKey("alice", "bob"), first.ConversationID)
	assert.Empty(t, first.Messages)

	send(t, alice, event.EventChatSend, model.ChatSendPayload{PeerID: "bob", Text: "hello"})
	sent := expect(t, alice, event.EventChatSnapshot, func(s model.ChatSnapshotEvent) bool {
		return len(s.Messages) == 1
	})
	assert.Equal(t, "hello", sent.Messages[0].Text)

	// bob's focused view marks the message delivered and then seen
	send(t, bob, event.EventChatOpen, model.ChatOpenPayload{PeerID: "alice"})
	expect(t, alice, event.EventChatSnapshot, func(s model.ChatSnapshotEvent) bool {
		return len(s.Messages) == 1 && s.Messages[0].DeliveryState == model.DeliverySeen
	})
}

func TestChatErrorsAreReported(t *testing.T) {
	env := newTestEnv(t, Config{})
	alice := env.dial(t, "alice")

	send(t, alice, event.EventChatSend, model.ChatSendPayload{PeerID: "bob", Text: "   "})
	got := expect[model.ChatErrorEvent](t, alice, event.EventChatError, nil)
	assert.Equal(t, "INVALID_ARGUMENT", got.Code)
	assert.Equal(t, "bob", got.PeerID)

	require.NoError(t, alice.WriteJSON(event.WsEvent{Event: event.EventChatOpen, Payload: json.RawMessage(`"nope"`)}))
	got = expect[model.ChatErrorEvent](t, alice, event.EventChatError, nil)
	assert.Equal(t, "INVALID_ARGUMENT", got.Code)
}

func TestCallRelay(t *testing.T) {
	env := newTestEnv(t, Config{})
	alice := env.dial(t, "alice")
	bob := env.dial(t, "bob")

	send(t, alice, event.EventCallCreate, model.CallCreatePayload{
		CalleeID: "bob",
		Offer:    model.SessionDescription{Type: "offer", SDP: "v=0 offer"},
	})
	created := expect[model.CallCreatedEvent](t, alice, event.EventCallCreated, nil)
	id := created.Session.ID
	require.NotEmpty(t, id)

	send(t, alice, event.EventCallCandidate, model.CallCandidatePayload{
		SessionID: id,
		Side:      model.SideOfferer,
		Candidate: model.CandidateInit{Candidate: "candidate:1"},
	})

	send(t, bob, event.EventCallAnswer, model.CallAnswerPayload{
		SessionID: id,
		Answer:    model.SessionDescription{Type: "answer", SDP: "v=0 answer"},
	})
	offer := expect[model.CallOfferEvent](t, bob, event.EventCallOffer, nil)
	assert.Equal(t, "v=0 offer", offer.Offer.SDP)

	// candidates published before the answer still reach the callee
	cand := expect[model.CallCandidateEvent](t, bob, event.EventCallRemoteCandidate, nil)
	assert.Equal(t, "candidate:1", cand.Candidate.Candidate)
	assert.Equal(t, int64(1), cand.Seq)

	answered := expect[model.CallAnsweredEvent](t, alice, event.EventCallAnswered, nil)
	assert.Equal(t, "v=0 answer", answered.Answer.SDP)

	send(t, bob, event.EventCallCandidate, model.CallCandidatePayload{
		SessionID: id,
		Side:      model.SideAnswerer,
		Candidate: model.CandidateInit{Candidate: "candidate:2"},
	})
	cand = expect[model.CallCandidateEvent](t, alice, event.EventCallRemoteCandidate, nil)
	assert.Equal(t, "candidate:2", cand.Candidate.Candidate)

	send(t, bob, event.EventCallHangUp, model.CallHangUpPayload{SessionID: id})
	expect[model.CallEndedEvent](t, bob, event.EventCallEnded, nil)
	ended := expect[model.CallEndedEvent](t, alice, event.EventCallEnded, nil)
	assert.Equal(t, id, ended.SessionID)

	list, err := env.calls.ListCandidates(context.Background(), id, model.SideOfferer)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEventsOfOneSocketKeepTheirOrder(t *testing.T) {
	const n = 100
	env := newTestEnv(t, Config{})
	alice := env.dial(t, "alice")

	send(t, alice, event.EventCallCreate, model.CallCreatePayload{
		Offer: model.SessionDescription{Type: "offer", SDP: "v=0 offer"},
	})
	id := expect[model.CallCreatedEvent](t, alice, event.EventCallCreated, nil).Session.ID

	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("c%03d", i)
		want = append(want, text)
		send(t, alice, event.EventCallCandidate, model.CallCandidatePayload{
			SessionID: id,
			Side:      model.SideOfferer,
			Candidate: model.CandidateInit{Candidate: text},
		})
		send(t, alice, event.EventChatSend, model.ChatSendPayload{PeerID: "bob", Text: text})
	}

	ctx := context.Background()
	conversationID := model.ConversationKey("alice", "bob")
	require.Eventually(t, func() bool {
		cs, _ := env.calls.ListCandidates(ctx, id, model.SideOfferer)
		ms, _ := env.messages.List(ctx, conversationID)
		return len(cs) == n && len(ms) == n
	}, 5*time.Second, 10*time.Millisecond)

	cs, err := env.calls.ListCandidates(ctx, id, model.SideOfferer)
	require.NoError(t, err)
	ms, err := env.messages.List(ctx, conversationID)
	require.NoError(t, err)

	gotCandidates := make([]string, 0, n)
	for i, c := range cs {
		assert.Equal(t, int64(i+1), c.Seq)
		gotCandidates = append(gotCandidates, c.Init.Candidate)
	}
	gotMessages := make([]string, 0, n)
	for _, m := range ms {
		gotMessages = append(gotMessages, m.Text)
	}
	assert.Equal(t, want, gotCandidates)
	assert.Equal(t, want, gotMessages)
}

func TestAnswerUnknownSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	bob := env.dial(t, "bob")

	send(t, bob, event.EventCallAnswer, model.CallAnswerPayload{
		SessionID: "missing",
		Answer:    model.SessionDescription{Type: "answer", SDP: "v=0"},
	})
	got := expect[model.CallErrorEvent](t, bob, event.EventCallError, nil)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, "missing", got.SessionID)
	assert.Zero(t, env.calls.Writes())
}

func TestRateLimitedEventsAreRejected(t *testing.T) {
	env := newTestEnv(t, Config{RateLimit: 0.001, RateBurst: 1})
	alice := env.dial(t, "alice")

	send(t, alice, event.EventChatTyping, model.ChatTypingPayload{PeerID: "bob", Typing: true})
	send(t, alice, event.EventChatTyping, model.ChatTypingPayload{PeerID: "bob", Typing: false})

	got := expect[model.ChatErrorEvent](t, alice, event.EventChatError, nil)
	assert.Equal(t, "UNAVAILABLE", got.Code)
}

func TestMonitorStats(t *testing.T) {
	env := newTestEnv(t, Config{})
	monitor := NewMonitorService(env.hub)

	assert.Equal(t, "idle", monitor.GetStats().Status)

	alice := env.dial(t, "alice")
	env.dial(t, "alice")
	env.dial(t, "bob")

	send(t, alice, event.EventChatOpen, model.ChatOpenPayload{PeerID: "bob"})
	expect[model.ChatSnapshotEvent](t, alice, event.EventChatSnapshot, nil)

	require.Eventually(t, func() bool {
		return monitor.GetStats().Connections.TotalConnected == 3
	}, 3*time.Second, 10*time.Millisecond)

	stats := monitor.GetStats()
	assert.Equal(t, "healthy", stats.Status)
	assert.Equal(t, 2, stats.Connections.TotalUsers)
	assert.Equal(t, 1, stats.Chats.OpenSessions)
	assert.Equal(t, 1, stats.Chats.Conversations)
	assert.Len(t, stats.Clients, 3)
}

func TestCheckOrigin(t *testing.T) {
	h := &Hub{config: Config{AllowedOrigins: []string{"https://campus.example"}}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://campus.example")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.checkOrigin(req))

	h.config.AllowedOrigins = []string{"*"}
	assert.True(t, h.checkOrigin(req))
}
