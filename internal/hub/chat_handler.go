package hub

import (
	"Campus/internal/chat"
	"Campus/internal/event"
	"Campus/internal/model"
	"Campus/internal/presence"
	"Campus/pkg/apperrors"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// ChatHandler runs conversation views on behalf of socket clients. Each
// chat:open starts a chat.Session whose snapshots are pushed back as
// chat:snapshot events.
type ChatHandler struct {
	hub     *Hub
	chats   *chat.Service
	tracker *presence.Tracker
}

func NewChatHandler(hub *Hub, chats *chat.Service, tracker *presence.Tracker) *ChatHandler {
	return &ChatHandler{
		hub:     hub,
		chats:   chats,
		tracker: tracker,
	}
}

// HandleChatEvent processes chat-related WebSocket events
func (ch *ChatHandler) HandleChatEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventChatOpen:
		ch.handleOpen(ev, c)
	case event.EventChatClose:
		ch.handleClose(ev, c)
	case event.EventChatFocus:
		ch.handleFocus(ev, c)
	case event.EventChatSend:
		ch.handleSend(ev, c)
	case event.EventChatEdit:
		ch.handleEdit(ev, c)
	case event.EventChatDelete:
		ch.handleDelete(ev, c)
	case event.EventChatTyping:
		ch.handleTyping(ev, c)
	default:
		c.logger.Warn("unknown chat event type", zap.String("event", ev.Event))
	}
}

func (ch *ChatHandler) handleOpen(ev event.WsEvent, c *Client) {
	var payload model.ChatOpenPayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if payload.PeerID == "" || payload.PeerID == c.userID {
		ch.sendChatError(c, payload.PeerID, apperrors.InvalidArg("a peer other than yourself is required"))
		return
	}
	if c.session(payload.PeerID) != nil {
		return
	}

	renderer := &socketRenderer{client: c, peerID: payload.PeerID}
	session := chat.NewSession(ch.chats, ch.tracker, c.userID, payload.PeerID, ch.hub.config.QuietInterval, renderer, c.logger)
	renderer.conversationID = session.ConversationID()

	if !c.addSession(payload.PeerID, session) {
		return
	}
	if err := session.Open(c.ctx); err != nil {
		c.removeSession(payload.PeerID)
		// the renderer already reported the failure
		return
	}

	c.logger.Debug("conversation opened", zap.String("peer_id", payload.PeerID))
}

func (ch *ChatHandler) handleClose(ev event.WsEvent, c *Client) {
	var payload model.ChatOpenPayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if s := c.removeSession(payload.PeerID); s != nil {
		s.Close()
	}
}

func (ch *ChatHandler) handleFocus(ev event.WsEvent, c *Client) {
	var payload model.ChatFocusPayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if s := c.session(payload.PeerID); s != nil {
		s.SetFocused(payload.Focused)
	}
}

func (ch *ChatHandler) handleSend(ev event.WsEvent, c *Client) {
	var payload model.ChatSendPayload
	if !ch.decode(ev, c, &payload) {
		return
	}

	var err error
	if s := c.session(payload.PeerID); s != nil {
		_, err = s.SendMessage(c.ctx, payload.Text)
	} else {
		_, err = ch.chats.Send(c.ctx, c.userID, payload.PeerID, payload.Text)
	}
	if err != nil {
		ch.sendChatError(c, payload.PeerID, err)
	}
}

func (ch *ChatHandler) handleEdit(ev event.WsEvent, c *Client) {
	var payload model.ChatEditPayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if _, err := ch.chats.Edit(c.ctx, c.userID, payload.MessageID, payload.Text); err != nil {
		ch.sendChatError(c, payload.PeerID, err)
	}
}

func (ch *ChatHandler) handleDelete(ev event.WsEvent, c *Client) {
	var payload model.ChatDeletePayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if err := ch.chats.Delete(c.ctx, c.userID, payload.MessageID); err != nil {
		ch.sendChatError(c, payload.PeerID, err)
	}
}

func (ch *ChatHandler) handleTyping(ev event.WsEvent, c *Client) {
	var payload model.ChatTypingPayload
	if !ch.decode(ev, c, &payload) {
		return
	}
	if payload.PeerID == "" {
		ch.sendChatError(c, "", apperrors.InvalidArg("peerId is required"))
		return
	}

	if s := c.session(payload.PeerID); s != nil {
		// the session's quiet timer clears the flag once keystrokes stop
		s.SetTyping(c.ctx, payload.Typing)
		return
	}
	conversationID := model.ConversationKey(c.userID, payload.PeerID)
	if err := ch.tracker.SetTyping(c.ctx, c.userID, conversationID, payload.Typing); err != nil {
		ch.sendChatError(c, payload.PeerID, apperrors.Unavailable("failed to set typing", err))
	}
}

func (ch *ChatHandler) decode(ev event.WsEvent, c *Client, v any) bool {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		c.logger.Warn("failed to unmarshal chat payload",
			zap.String("event", ev.Event),
			zap.Error(err),
		)
		ch.sendChatError(c, "", apperrors.InvalidArg("failed to parse "+ev.Event+" payload"))
		return false
	}
	return true
}

func (ch *ChatHandler) sendChatError(c *Client, peerID string, err error) {
	sendChatError(c, peerID, err)
}

func sendChatError(c *Client, peerID string, err error) {
	ev, mErr := event.New(event.EventChatError, model.ChatErrorEvent{
		PeerID:    peerID,
		Code:      string(apperrors.CodeOf(err)),
		Error:     apperrors.Message(err),
		Timestamp: time.Now().Unix(),
	})
	if mErr != nil {
		return
	}
	c.SafeSend(ev, sendTimeout)
}

// socketRenderer forwards a session's output to the socket.
type socketRenderer struct {
	client         *Client
	peerID         string
	conversationID string
}

func (r *socketRenderer) Render(messages []model.Message) {
	ev, err := event.New(event.EventChatSnapshot, model.ChatSnapshotEvent{
		ConversationID: r.conversationID,
		PeerID:         r.peerID,
		Messages:       messages,
		Timestamp:      time.Now().Unix(),
	})
	if err != nil {
		r.client.logger.Error("failed to marshal snapshot", zap.Error(err))
		return
	}
	r.client.SafeSend(ev, sendTimeout)
}

func (r *socketRenderer) Typing(signals []model.TypingSignal) {
	ev, err := event.New(event.EventChatTypingState, model.ChatTypingEvent{
		ConversationID: r.conversationID,
		PeerID:         r.peerID,
		Typing:         signals,
	})
	if err != nil {
		return
	}
	r.client.SafeSend(ev, sendTimeout)
}

func (r *socketRenderer) Failed(err error) {
	sendChatError(r.client, r.peerID, err)
}
