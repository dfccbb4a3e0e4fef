package hub

import (
	"Campus/internal/model"
	"Campus/internal/repo"
	"Campus/internal/signaling"
	"context"
	"sync"

	"go.uber.org/zap"
)

type relayRole int

const (
	roleCaller relayRole = iota
	roleCallee
)

// remoteSide is the candidate set this role consumes.
func (r relayRole) remoteSide() model.CandidateSide {
	if r == roleCaller {
		return model.SideAnswerer
	}
	return model.SideOfferer
}

// callRelay follows one call session for one socket: the answer (callers
// only), the remote candidate set in seq order, and the record's deletion.
type callRelay struct {
	handler   *CallHandler
	client    *Client
	sessionID string
	role      relayRole

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func newCallRelay(handler *CallHandler, c *Client, sessionID string, role relayRole) *callRelay {
	ctx, cancel := context.WithCancel(c.ctx)
	return &callRelay{
		handler:   handler,
		client:    c,
		sessionID: sessionID,
		role:      role,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (r *callRelay) start() error {
	sessions, err := r.handler.exchange.Watch(r.ctx, r.sessionID)
	if err != nil {
		r.cancel()
		close(r.done)
		return err
	}
	candidates, err := r.handler.exchange.WatchCandidates(r.ctx, r.sessionID, r.role.remoteSide())
	if err != nil {
		r.cancel()
		close(r.done)
		return err
	}

	go r.run(sessions, candidates)
	return nil
}

func (r *callRelay) stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		<-r.done
	})
}

func (r *callRelay) run(sessions *repo.Feed[*model.CallSession], candidates *repo.Feed[[]model.Candidate]) {
	defer close(r.done)

	log := r.client.logger.With(zap.String("session_id", r.sessionID))
	answered := r.role == roleCallee
	var cursor signaling.CandidateCursor

	for {
		select {
		case <-r.ctx.Done():
			return

		case session, ok := <-sessions.Updates():
			if !ok {
				if r.ctx.Err() == nil {
					log.Warn("call session feed ended", zap.Error(sessions.Err()))
				}
				return
			}
			if session == nil {
				r.handler.notifyEnded(r.client, r.sessionID)
				r.client.removeRelay(r.sessionID)
				return
			}
			if !answered && session.Answer != nil {
				answered = true
				r.handler.notifyAnswered(r.client, r.sessionID, *session.Answer)
			}

		case list, ok := <-candidates.Updates():
			if !ok {
				if r.ctx.Err() == nil {
					log.Warn("candidate feed ended", zap.Error(candidates.Err()))
				}
				return
			}
			for _, cand := range cursor.Next(list) {
				r.handler.notifyCandidate(r.client, cand)
			}
		}
	}
}
