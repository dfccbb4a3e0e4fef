package hub

import (
	"Campus/internal/event"
	"Campus/internal/model"
	"Campus/pkg/apperrors"
	"time"

	"go.uber.org/zap"
)

// -----------------------------------------------------------------
// Notification Methods - Send Events to Clients
// -----------------------------------------------------------------

func (ch *CallHandler) notifyCreated(c *Client, session *model.CallSession) {
	ch.send(c, event.EventCallCreated, model.CallCreatedEvent{
		Session:   *session,
		Timestamp: time.Now().Unix(),
	})
}

func (ch *CallHandler) notifyOffer(c *Client, session *model.CallSession) {
	if session.Offer == nil {
		return
	}
	ch.send(c, event.EventCallOffer, model.CallOfferEvent{
		SessionID: session.ID,
		Offer:     *session.Offer,
		Timestamp: time.Now().Unix(),
	})
}

func (ch *CallHandler) notifyAnswered(c *Client, sessionID string, answer model.SessionDescription) {
	ch.send(c, event.EventCallAnswered, model.CallAnsweredEvent{
		SessionID: sessionID,
		Answer:    answer,
		Timestamp: time.Now().Unix(),
	})
}

func (ch *CallHandler) notifyCandidate(c *Client, candidate model.Candidate) {
	ch.send(c, event.EventCallRemoteCandidate, model.CallCandidateEvent{
		SessionID: candidate.SessionID,
		Side:      candidate.Side,
		Seq:       candidate.Seq,
		Candidate: candidate.Init,
	})
}

func (ch *CallHandler) notifyEnded(c *Client, sessionID string) {
	ch.send(c, event.EventCallEnded, model.CallEndedEvent{
		SessionID: sessionID,
		Timestamp: time.Now().Unix(),
	})
}

// sendCallError sends an error event to a specific client
func (ch *CallHandler) sendCallError(c *Client, sessionID string, err error) {
	ch.send(c, event.EventCallError, model.CallErrorEvent{
		SessionID: sessionID,
		Error:     apperrors.Message(err),
		Code:      string(apperrors.CodeOf(err)),
		Timestamp: time.Now().Unix(),
	})
}

func (ch *CallHandler) send(c *Client, name string, payload any) {
	ev, err := event.New(name, payload)
	if err != nil {
		c.logger.Error("failed to marshal call event",
			zap.String("event", name),
			zap.Error(err),
		)
		return
	}
	c.SafeSend(ev, sendTimeout)
}
