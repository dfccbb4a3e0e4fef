package signaling

import (
	"Campus/internal/media"
	"Campus/internal/model"
	"Campus/internal/repo"
	"Campus/pkg/apperrors"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CallState is the peer-side view of a call.
type CallState int

const (
	CallIdle CallState = iota
	CallNegotiating
	CallActive
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallNegotiating:
		return "negotiating"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Role says which side of the exchange this peer writes to.
type Role int

const (
	RoleNone Role = iota
	RoleCaller
	RoleCallee
)

func (r Role) side() model.CandidateSide {
	if r == RoleCaller {
		return model.SideOfferer
	}
	return model.SideAnswerer
}

const hangUpTimeout = 5 * time.Second

// Call drives one media peer through the exchange. After StartCall or
// AnswerCall every signaling event is handled on a single goroutine.
type Call struct {
	exchange *Exchange
	peer     media.Peer
	userID   string
	logger   *zap.Logger

	locals      *localQueue
	mediaStates chan media.ConnectionState

	mu        sync.Mutex
	state     CallState
	role      Role
	sessionID string
	onState   func(CallState)
	cancel    context.CancelFunc
	done      chan struct{}

	// owned by the event loop
	remoteSet bool
	pending   []model.CandidateInit
	applied   CandidateCursor
}

func NewCall(exchange *Exchange, peer media.Peer, userID string, logger *zap.Logger) *Call {
	c := &Call{
		exchange:    exchange,
		peer:        peer,
		userID:      userID,
		logger:      logger.With(zap.String("user_id", userID)),
		locals:      newLocalQueue(),
		mediaStates: make(chan media.ConnectionState, 8),
	}

	peer.OnLocalCandidate(c.locals.push)
	peer.OnConnectionStateChange(func(s media.ConnectionState) {
		select {
		case c.mediaStates <- s:
		default:
		}
	})
	return c
}

// OnStateChange registers fn to observe state transitions. Set it before
// starting the call.
func (c *Call) OnStateChange(fn func(CallState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *Call) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Call) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Call) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// StartCall creates the offer, publishes it in a fresh session and starts
// streaming local candidates. The call becomes Active once the callee's
// answer shows up on the session record.
func (c *Call) StartCall(ctx context.Context, calleeID string) (string, error) {
	if err := c.claim(RoleCaller); err != nil {
		return "", err
	}

	offer, err := c.peer.CreateOffer(ctx)
	if err != nil {
		c.abort()
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to create offer", err)
	}

	session, err := c.exchange.Create(ctx, c.userID, calleeID, offer)
	if err != nil {
		c.abort()
		return "", err
	}

	if err := c.begin(ctx, session.ID, model.SideAnswerer); err != nil {
		c.hangUpRecord(session.ID)
		c.abort()
		return "", err
	}
	return session.ID, nil
}

// AnswerCall joins an existing session. An unknown or stale id fails with
// ErrUnknownSession before anything is written.
func (c *Call) AnswerCall(ctx context.Context, sessionID string) error {
	if err := c.claim(RoleCallee); err != nil {
		return err
	}

	session, err := c.exchange.Get(ctx, sessionID)
	if err != nil {
		c.abort()
		return err
	}
	if session.Offer == nil {
		c.abort()
		return apperrors.FailedPrecondition("call session has no offer")
	}

	if err := c.peer.SetRemoteDescription(*session.Offer); err != nil {
		c.abort()
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "offer rejected by media layer", err)
	}
	c.remoteSet = true

	answer, err := c.peer.CreateAnswer(ctx)
	if err != nil {
		c.abort()
		return apperrors.Wrap(apperrors.CodeInternal, "failed to create answer", err)
	}

	if _, err := c.exchange.Answer(ctx, sessionID, c.userID, answer); err != nil {
		c.abort()
		return err
	}

	if err := c.begin(ctx, sessionID, model.SideOfferer); err != nil {
		c.hangUpRecord(sessionID)
		c.abort()
		return err
	}
	c.setState(CallActive)
	return nil
}

// HangUp stops local media, closes the connection and deletes the session
// with both candidate sets. The remote side is not notified directly.
func (c *Call) HangUp(ctx context.Context) error {
	c.mu.Lock()
	if c.state == CallIdle || c.state == CallEnded {
		c.mu.Unlock()
		return nil
	}
	cancel, done, sessionID := c.cancel, c.done, c.sessionID
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if err := c.peer.Close(); err != nil {
		c.logger.Warn("peer close failed", zap.Error(err))
	}
	c.setState(CallEnded)

	if sessionID == "" {
		return nil
	}
	return c.exchange.HangUp(ctx, sessionID)
}

func (c *Call) claim(role Role) error {
	c.mu.Lock()
	if c.state != CallIdle {
		c.mu.Unlock()
		return apperrors.FailedPrecondition("call already in progress")
	}
	c.state = CallNegotiating
	c.role = role
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(CallNegotiating)
	}
	return nil
}

// abort ends a call that never got a live session.
func (c *Call) abort() {
	_ = c.peer.Close()
	c.setState(CallEnded)
}

// begin opens the two feeds and starts the event loop.
func (c *Call) begin(ctx context.Context, sessionID string, remoteSide model.CandidateSide) error {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	sessions, err := c.exchange.Watch(loopCtx, sessionID)
	if err != nil {
		cancel()
		return err
	}
	candidates, err := c.exchange.WatchCandidates(loopCtx, sessionID, remoteSide)
	if err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info("call signaling started",
		zap.String("session_id", sessionID),
		zap.String("remote_side", string(remoteSide)),
	)

	go c.loop(loopCtx, sessionID, sessions, candidates)
	return nil
}

func (c *Call) loop(ctx context.Context, sessionID string, sessions *repo.Feed[*model.CallSession], candidates *repo.Feed[[]model.Candidate]) {
	defer close(c.done)

	side := c.Role().side()
	log := c.logger.With(zap.String("session_id", sessionID))

	for {
		select {
		case <-ctx.Done():
			return

		case session, ok := <-sessions.Updates():
			if !ok {
				if ctx.Err() == nil {
					log.Warn("session feed ended", zap.Error(sessions.Err()))
					c.endFromLoop(sessionID, true)
				}
				return
			}
			if session == nil {
				log.Info("call session removed by remote side")
				c.endFromLoop(sessionID, false)
				return
			}
			if err := c.applyAnswer(session); err != nil {
				log.Error("failed to apply answer", zap.Error(err))
				c.endFromLoop(sessionID, true)
				return
			}

		case list, ok := <-candidates.Updates():
			if !ok {
				if ctx.Err() == nil {
					log.Warn("candidate feed ended", zap.Error(candidates.Err()))
					c.endFromLoop(sessionID, true)
				}
				return
			}
			c.applyCandidates(log, list)

		case <-c.locals.signal:
			for _, cand := range c.locals.drain() {
				if _, err := c.exchange.AddCandidate(ctx, sessionID, side, cand); err != nil {
					if errors.Is(err, ErrUnknownSession) {
						log.Info("call session gone while publishing candidate")
						c.endFromLoop(sessionID, false)
						return
					}
					log.Warn("failed to publish local candidate", zap.Error(err))
				}
			}

		case s := <-c.mediaStates:
			log.Debug("media connection state", zap.String("state", string(s)))
			if s.Terminal() {
				c.endFromLoop(sessionID, true)
				return
			}
		}
	}
}

// applyAnswer completes the caller's negotiation once the answer appears.
func (c *Call) applyAnswer(session *model.CallSession) error {
	if c.Role() != RoleCaller || c.remoteSet || session.Answer == nil {
		return nil
	}
	if err := c.peer.SetRemoteDescription(*session.Answer); err != nil {
		return err
	}
	c.remoteSet = true

	for _, cand := range c.pending {
		if err := c.peer.AddRemoteCandidate(cand); err != nil {
			c.logger.Warn("buffered candidate rejected", zap.Error(err))
		}
	}
	c.pending = nil
	c.setState(CallActive)
	return nil
}

// applyCandidates applies the candidates that follow the last applied seq.
// Until the remote description is set they are buffered.
func (c *Call) applyCandidates(log *zap.Logger, list []model.Candidate) {
	for _, cand := range c.applied.Next(list) {
		if !c.remoteSet {
			c.pending = append(c.pending, cand.Init)
			continue
		}
		if err := c.peer.AddRemoteCandidate(cand.Init); err != nil {
			log.Warn("remote candidate rejected", zap.Int64("seq", cand.Seq), zap.Error(err))
		}
	}
}

// endFromLoop finishes the call from inside the event loop. When cleanup is
// set the record is deleted too, since the remote side may still be waiting
// on it.
func (c *Call) endFromLoop(sessionID string, cleanup bool) {
	if err := c.peer.Close(); err != nil {
		c.logger.Warn("peer close failed", zap.Error(err))
	}
	if cleanup {
		c.hangUpRecord(sessionID)
	}
	c.setState(CallEnded)
}

func (c *Call) hangUpRecord(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), hangUpTimeout)
	defer cancel()
	if err := c.exchange.HangUp(ctx, sessionID); err != nil {
		c.logger.Warn("failed to delete call session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// setState moves the call forward. Ended is final.
func (c *Call) setState(s CallState) {
	c.mu.Lock()
	if c.state == s || c.state == CallEnded {
		c.mu.Unlock()
		return
	}
	c.state = s
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// localQueue buffers candidates the media layer discovers on its own
// goroutines until the event loop publishes them.
type localQueue struct {
	mu     sync.Mutex
	items  []model.CandidateInit
	signal chan struct{}
}

func newLocalQueue() *localQueue {
	return &localQueue{signal: make(chan struct{}, 1)}
}

func (q *localQueue) push(c model.CandidateInit) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *localQueue) drain() []model.CandidateInit {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
