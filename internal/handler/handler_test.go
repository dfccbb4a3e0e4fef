package handler

import (
	"Campus/internal/chat"
	"Campus/internal/model"
	"Campus/internal/repo/memory"
	"Campus/internal/signaling"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	HttpStatusCode int             `json:"HttpStatusCode"`
	ResponseBody   json.RawMessage `json:"ResponseBody"`
	IsSuccess      bool            `json:"IsSuccess"`
	Message        string          `json:"Message"`
}

func newRouter() (*gin.Engine, *memory.CallRepository) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	chats := chat.NewService(memory.NewMessageRepository(), memory.NewSummaryRepository(), chat.DefaultMaxMessageLength, logger)
	calls := memory.NewCallRepository()
	exchange := signaling.NewExchange(calls, signaling.DefaultStaleTTL, logger)

	ch := NewChatHandler(chats)
	cl := NewCallHandler(exchange)

	r := gin.New()
	api := r.Group("/campus/api")
	api.GET("/conversations/:peerId/messages", ch.GetMessages)
	api.POST("/conversations/:peerId/messages", ch.SendMessage)
	api.PATCH("/messages/:messageId", ch.EditMessage)
	api.DELETE("/messages/:messageId", ch.DeleteMessage)
	api.GET("/users/:userId/summaries", ch.GetSummaries)
	api.POST("/calls", cl.CreateCall)
	api.GET("/calls/:id", cl.GetCall)
	api.PUT("/calls/:id/answer", cl.AnswerCall)
	api.POST("/calls/:id/candidates", cl.AddCandidate)
	api.GET("/calls/:id/candidates", cl.GetCandidates)
	api.DELETE("/calls/:id", cl.HangUp)
	return r, calls
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, w.Code, env.HttpStatusCode)
	return w.Code, env
}

func TestMessageEndpoints(t *testing.T) {
	r, _ := newRouter()

	code, env := do(t, r, http.MethodPost, "/campus/api/conversations/bob/messages",
		model.SendMessageRequest{SenderID: "alice", Text: "hi bob"})
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.IsSuccess)

	var msg model.Message
	require.NoError(t, json.Unmarshal(env.ResponseBody, &msg))
	assert.Equal(t, model.DeliverySent, msg.DeliveryState)

	// both participants read the same conversation
	code, env = do(t, r, http.MethodGet, "/campus/api/conversations/alice/messages?userId=bob", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Data []model.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.ResponseBody, &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, msg.ID, page.Data[0].ID)

	code, env = do(t, r, http.MethodPatch, "/campus/api/messages/"+msg.ID,
		model.EditMessageRequest{UserID: "alice", Text: "hi bob!"})
	require.Equal(t, http.StatusOK, code)
	var edited model.Message
	require.NoError(t, json.Unmarshal(env.ResponseBody, &edited))
	assert.Equal(t, "hi bob!", edited.Text)

	code, _ = do(t, r, http.MethodPatch, "/campus/api/messages/"+msg.ID,
		model.EditMessageRequest{UserID: "bob", Text: "not mine"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = do(t, r, http.MethodGet, "/campus/api/users/bob/summaries", nil)
	require.Equal(t, http.StatusOK, code)
	var summaries []model.ChatSummary
	require.NoError(t, json.Unmarshal(env.ResponseBody, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].PeerID)

	code, _ = do(t, r, http.MethodDelete, "/campus/api/messages/"+msg.ID+"?userId=bob", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodDelete, "/campus/api/messages/"+msg.ID+"?userId=bob", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMessageEndpointValidation(t *testing.T) {
	r, _ := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing user", http.MethodGet, "/campus/api/conversations/bob/messages", nil, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/campus/api/conversations/bob/messages?userId=a&page=zero", nil, http.StatusBadRequest},
		{"empty text", http.MethodPost, "/campus/api/conversations/bob/messages", model.SendMessageRequest{SenderID: "alice", Text: " "}, http.StatusBadRequest},
		{"missing sender", http.MethodPost, "/campus/api/conversations/bob/messages", map[string]string{"text": "hi"}, http.StatusBadRequest},
		{"unknown message", http.MethodPatch, "/campus/api/messages/nope", model.EditMessageRequest{UserID: "alice", Text: "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code)
			assert.False(t, env.IsSuccess)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestCallEndpoints(t *testing.T) {
	r, _ := newRouter()

	code, env := do(t, r, http.MethodPost, "/campus/api/calls", model.CreateCallRequest{
		CallerID: "alice",
		Offer:    model.SessionDescription{Type: "offer", SDP: "v=0 offer"},
	})
	require.Equal(t, http.StatusCreated, code)
	var session model.CallSession
	require.NoError(t, json.Unmarshal(env.ResponseBody, &session))
	base := "/campus/api/calls/" + session.ID

	code, _ = do(t, r, http.MethodPost, base+"/candidates", model.AddCandidateRequest{
		Side:      model.SideOfferer,
		Candidate: model.CandidateInit{Candidate: "candidate:1"},
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = do(t, r, http.MethodPut, base+"/answer", model.AnswerCallRequest{
		CalleeID: "bob",
		Answer:   model.SessionDescription{Type: "answer", SDP: "v=0 answer"},
	})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.ResponseBody, &session))
	assert.Equal(t, model.CallActive, session.State)

	code, env = do(t, r, http.MethodGet, base+"/candidates?side=offerer", nil)
	require.Equal(t, http.StatusOK, code)
	var list []model.Candidate
	require.NoError(t, json.Unmarshal(env.ResponseBody, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "candidate:1", list[0].Init.Candidate)

	code, _ = do(t, r, http.MethodGet, base+"/candidates?side=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// hanging up twice is fine
	code, _ = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAnswerUnknownCallWritesNothing(t *testing.T) {
	r, calls := newRouter()

	code, env := do(t, r, http.MethodPut, "/campus/api/calls/nonexistent/answer", model.AnswerCallRequest{
		CalleeID: "bob",
		Answer:   model.SessionDescription{Type: "answer", SDP: "v=0"},
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.IsSuccess)
	assert.Zero(t, calls.Writes())
}
