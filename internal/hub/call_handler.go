package hub

import (
	"Campus/internal/event"
	"Campus/internal/model"
	"Campus/internal/signaling"
	"Campus/pkg/apperrors"
	"encoding/json"

	"go.uber.org/zap"
)

// CallHandler exposes the signaling exchange to socket clients. The browser
// owns the media connection; the hub stores what it publishes and relays
// what the other side published.
type CallHandler struct {
	hub      *Hub
	exchange *signaling.Exchange
}

func NewCallHandler(hub *Hub, exchange *signaling.Exchange) *CallHandler {
	return &CallHandler{
		hub:      hub,
		exchange: exchange,
	}
}

// HandleCallEvent processes call-related WebSocket events
func (ch *CallHandler) HandleCallEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventCallCreate:
		ch.handleCreate(ev, c)
	case event.EventCallAnswer:
		ch.handleAnswer(ev, c)
	case event.EventCallCandidate:
		ch.handleCandidate(ev, c)
	case event.EventCallHangUp:
		ch.handleHangUp(ev, c)
	default:
		c.logger.Warn("unknown call event type", zap.String("event", ev.Event))
	}
}

// handleCreate stores the caller's offer and starts relaying the answer
// and the answerer's candidates back to this socket.
func (ch *CallHandler) handleCreate(ev event.WsEvent, c *Client) {
	var payload model.CallCreatePayload
	if !ch.decode(ev, c, &payload) {
		return
	}

	session, err := ch.exchange.Create(c.ctx, c.userID, payload.CalleeID, payload.Offer)
	if err != nil {
		ch.sendCallError(c, "", err)
		return
	}

	ch.notifyCreated(c, session)
	if err := ch.startRelay(c, session.ID, roleCaller); err != nil {
		ch.sendCallError(c, session.ID, err)
	}
}

// handleAnswer publishes the callee's answer. The offer is echoed back so
// the client can apply it if it answered from a shared id alone.
func (ch *CallHandler) handleAnswer(ev event.WsEvent, c *Client) {
	var payload model.CallAnswerPayload
	if !ch.decode(ev, c, &payload) {
		return
	}

	session, err := ch.exchange.Answer(c.ctx, payload.SessionID, c.userID, payload.Answer)
	if err != nil {
		ch.sendCallError(c, payload.SessionID, err)
		return
	}

	ch.notifyOffer(c, session)
	if err := ch.startRelay(c, session.ID, roleCallee); err != nil {
		ch.sendCallError(c, session.ID, err)
	}
}

func (ch *CallHandler) handleCandidate(ev event.WsEvent, c *Client) {
	var payload model.CallCandidatePayload
	if !ch.decode(ev, c, &payload) {
		return
	}

	if _, err := ch.exchange.AddCandidate(c.ctx, payload.SessionID, payload.Side, payload.Candidate); err != nil {
		ch.sendCallError(c, payload.SessionID, err)
	}
}

// handleHangUp deletes the record. The other socket learns about it from
// its own relay.
func (ch *CallHandler) handleHangUp(ev event.WsEvent, c *Client) {
	var payload model.CallHangUpPayload
	if !ch.decode(ev, c, &payload) {
		return
	}

	if r := c.removeRelay(payload.SessionID); r != nil {
		r.stop()
	}
	if err := ch.exchange.HangUp(c.ctx, payload.SessionID); err != nil {
		ch.sendCallError(c, payload.SessionID, err)
		return
	}
	ch.notifyEnded(c, payload.SessionID)
}

func (ch *CallHandler) startRelay(c *Client, sessionID string, role relayRole) error {
	r := newCallRelay(ch, c, sessionID, role)
	if !c.addRelay(r) {
		return nil
	}
	if err := r.start(); err != nil {
		c.removeRelay(sessionID)
		return err
	}
	return nil
}

func (ch *CallHandler) decode(ev event.WsEvent, c *Client, v any) bool {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		c.logger.Warn("failed to unmarshal call payload",
			zap.String("event", ev.Event),
			zap.Error(err),
		)
		ch.sendCallError(c, "", apperrors.InvalidArg("failed to parse "+ev.Event+" payload"))
		return false
	}
	return true
}
