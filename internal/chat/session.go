package chat

import (
	"Campus/internal/metrics"
	"Campus/internal/model"
	"Campus/internal/presence"
	"Campus/internal/repo"
	"Campus/pkg/apperrors"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle of a conversation view.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateLive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const defaultMarkTimeout = 5 * time.Second

// Renderer receives everything a conversation view displays. All calls for
// one session come from the same goroutine.
type Renderer interface {
	Render(messages []model.Message)
	Typing(signals []model.TypingSignal)
	Failed(err error)
}

// Session keeps one user's view of one conversation live. While open it
// marks incoming messages delivered, and seen when the view is focused.
type Session struct {
	service  *Service
	tracker  *presence.Tracker
	typist   *presence.Typist
	renderer Renderer
	logger   *zap.Logger

	userID         string
	peerID         string
	conversationID string
	markTimeout    time.Duration

	mu      sync.Mutex
	state   State
	focused bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
}

func NewSession(service *Service, tracker *presence.Tracker, userID, peerID string, quiet time.Duration, renderer Renderer, logger *zap.Logger) *Session {
	conversationID := model.ConversationKey(userID, peerID)
	return &Session{
		service:        service,
		tracker:        tracker,
		typist:         presence.NewTypist(tracker, userID, conversationID, quiet),
		renderer:       renderer,
		logger:         logger.With(zap.String("conversation_id", conversationID), zap.String("user_id", userID)),
		userID:         userID,
		peerID:         peerID,
		conversationID: conversationID,
		markTimeout:    defaultMarkTimeout,
		focused:        true,
		wake:           make(chan struct{}, 1),
	}
}

func (s *Session) ConversationID() string { return s.conversationID }
func (s *Session) PeerID() string         { return s.peerID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open subscribes to the conversation. The session is Live once the first
// snapshot has been handled.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return apperrors.FailedPrecondition("session already open")
	}
	s.state = StateLoading

	ctx, cancel := context.WithCancel(ctx)
	messages, err := s.service.Subscribe(ctx, s.conversationID)
	if err != nil {
		cancel()
		s.state = StateFailed
		s.logger.Error("failed to subscribe to conversation", zap.Error(err))
		s.renderer.Failed(err)
		return err
	}

	typing, err := s.tracker.Subscribe(ctx, s.conversationID)
	if err != nil {
		// typing is cosmetic; the conversation still works without it
		s.logger.Warn("typing feed unavailable", zap.Error(err))
		typing = nil
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, messages, typing)
	return nil
}

// Close unsubscribes and clears the user's typing flag. No marks are issued
// afterwards; a mark already in flight is allowed to finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	ctx, stop := context.WithTimeout(context.Background(), s.markTimeout)
	defer stop()
	s.typist.Stop(ctx)
}

// SetFocused toggles whether the view is visible. Seen marks only happen
// while focused; regaining focus marks whatever arrived meanwhile.
func (s *Session) SetFocused(focused bool) {
	s.mu.Lock()
	s.focused = focused
	s.mu.Unlock()

	if focused {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Session) SendMessage(ctx context.Context, text string) (*model.Message, error) {
	msg, err := s.service.Send(ctx, s.userID, s.peerID, text)
	if err != nil {
		return nil, err
	}
	s.typist.Set(ctx, false)
	return msg, nil
}

func (s *Session) EditMessage(ctx context.Context, messageID, text string) (*model.Message, error) {
	return s.service.Edit(ctx, s.userID, messageID, text)
}

func (s *Session) DeleteMessage(ctx context.Context, messageID string) error {
	return s.service.Delete(ctx, s.userID, messageID)
}

// Keystroke raises the typing flag and re-arms the quiet timer.
func (s *Session) Keystroke(ctx context.Context) {
	s.typist.Keystroke(ctx)
}

func (s *Session) SetTyping(ctx context.Context, typing bool) {
	s.typist.Set(ctx, typing)
}

func (s *Session) loop(ctx context.Context, messages *repo.Feed[[]model.Message], typing *repo.Feed[[]model.TypingSignal]) {
	defer close(s.done)

	var typingUpdates <-chan []model.TypingSignal
	if typing != nil {
		typingUpdates = typing.Updates()
	}

	var (
		last []model.Message
		live bool
	)
	defer func() {
		if live {
			metrics.RecordChatClosed()
		}
	}()

	for {
		select {
		case snapshot, ok := <-messages.Updates():
			if !ok {
				if err := messages.Err(); err != nil && ctx.Err() == nil {
					s.fail(err)
				}
				return
			}
			if !live {
				live = s.goLive()
				if live {
					metrics.RecordChatOpened()
				}
			}
			last = snapshot
			s.mark(ctx, last)
			s.renderer.Render(snapshot)

		case signals, ok := <-typingUpdates:
			if !ok {
				typingUpdates = nil
				continue
			}
			s.renderer.Typing(s.tracker.Active(signals, s.userID))

		case <-s.wake:
			s.mark(ctx, last)
		}
	}
}

func (s *Session) goLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return false
	}
	s.state = StateLive
	s.logger.Debug("chat session live")
	return true
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = StateFailed
	}
	s.mu.Unlock()

	s.logger.Error("conversation feed failed", zap.Error(err))
	s.renderer.Failed(apperrors.Unavailable("conversation feed failed", err))
}

// mark runs the two passes for messages addressed to the local user: sent
// to delivered, then anything unseen to seen while focused. Each pass only
// runs when the snapshot has something for it to do, so a steady state
// issues no writes.
func (s *Session) mark(ctx context.Context, snapshot []model.Message) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	focused := s.focused
	s.mu.Unlock()

	var needDelivered, needSeen bool
	for _, m := range snapshot {
		if m.ReceiverID != s.userID {
			continue
		}
		if m.DeliveryState.Before(model.DeliveryDelivered) {
			needDelivered = true
		}
		if m.DeliveryState.Before(model.DeliverySeen) {
			needSeen = true
		}
	}
	if !needDelivered && !(focused && needSeen) {
		return
	}

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.markTimeout)
	defer cancel()

	if needDelivered {
		if _, err := s.service.MarkDelivered(markCtx, s.conversationID, s.userID, s.peerID); err != nil {
			s.logger.Warn("mark delivered failed", zap.Error(err))
			return
		}
	}
	if focused && needSeen {
		if _, err := s.service.MarkSeen(markCtx, s.conversationID, s.userID, s.peerID); err != nil {
			s.logger.Warn("mark seen failed", zap.Error(err))
		}
	}
}
