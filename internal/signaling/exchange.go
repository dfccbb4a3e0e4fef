// Package signaling implements the call signaling exchange: the shared
// session record two peers negotiate through, and the peer-side state
// machine that drives a media connection from it.
package signaling

import (
	"Campus/internal/metrics"
	"Campus/internal/model"
	"Campus/internal/repo"
	"Campus/pkg/apperrors"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultStaleTTL = 2 * time.Minute

// ErrUnknownSession is returned for ids that do not name a live session,
// including sessions that went stale before being answered.
var ErrUnknownSession = apperrors.NotFound("unknown call session")

// Exchange keeps call session records. It never relays media; it only
// stores descriptions and candidates for the two peers to pick up.
type Exchange struct {
	calls    repo.CallRepository
	staleTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewExchange(calls repo.CallRepository, staleTTL time.Duration, logger *zap.Logger) *Exchange {
	if staleTTL <= 0 {
		staleTTL = DefaultStaleTTL
	}
	return &Exchange{
		calls:    calls,
		staleTTL: staleTTL,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Create stores a new session holding the caller's offer. calleeID is
// optional; when set only that user may answer.
func (e *Exchange) Create(ctx context.Context, callerID, calleeID string, offer model.SessionDescription) (*model.CallSession, error) {
	if callerID == "" {
		return nil, apperrors.InvalidArg("caller is required")
	}
	if offer.Type != "offer" || strings.TrimSpace(offer.SDP) == "" {
		return nil, apperrors.InvalidArg("a session offer is required")
	}

	now := e.now().Truncate(time.Millisecond)
	session := &model.CallSession{
		ID:        uuid.New().String(),
		CallerID:  callerID,
		CalleeID:  calleeID,
		Offer:     &offer,
		State:     model.CallNegotiating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.calls.Create(ctx, session); err != nil {
		e.logger.Error("failed to create call session",
			zap.String("caller_id", callerID),
			zap.Error(err),
		)
		return nil, toAppError(err)
	}

	metrics.CallsCreated.Inc()
	e.logger.Info("call session created",
		zap.String("session_id", session.ID),
		zap.String("caller_id", callerID),
		zap.String("callee_id", calleeID),
	)
	return session, nil
}

// Get returns the session. A negotiating session older than the stale TTL
// is reported as unknown even if the sweeper has not removed it yet.
func (e *Exchange) Get(ctx context.Context, id string) (*model.CallSession, error) {
	if id == "" {
		return nil, ErrUnknownSession
	}

	session, err := e.calls.Get(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	if session.StaleAt(e.cutoff()) {
		e.logger.Debug("stale call session treated as ended", zap.String("session_id", id))
		return nil, ErrUnknownSession
	}
	return session, nil
}

// Answer publishes the callee's answer; the session becomes active.
func (e *Exchange) Answer(ctx context.Context, id, calleeID string, answer model.SessionDescription) (*model.CallSession, error) {
	if answer.Type != "answer" || strings.TrimSpace(answer.SDP) == "" {
		return nil, apperrors.InvalidArg("a session answer is required")
	}

	session, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.CalleeID != "" && calleeID != session.CalleeID {
		return nil, apperrors.Forbidden("call is addressed to another user")
	}
	if calleeID != "" && calleeID == session.CallerID {
		return nil, apperrors.InvalidArg("caller cannot answer their own call")
	}

	answered, err := e.calls.SetAnswer(ctx, id, answer)
	if err != nil {
		return nil, toAppError(err)
	}

	metrics.CallsAnswered.Inc()
	e.logger.Info("call session answered",
		zap.String("session_id", id),
		zap.String("callee_id", calleeID),
	)
	return answered, nil
}

// AddCandidate appends a candidate to one side's set.
func (e *Exchange) AddCandidate(ctx context.Context, id string, side model.CandidateSide, candidate model.CandidateInit) (*model.Candidate, error) {
	if !side.Valid() {
		return nil, apperrors.InvalidArg("side must be offerer or answerer")
	}
	if strings.TrimSpace(candidate.Candidate) == "" {
		return nil, apperrors.InvalidArg("candidate is required")
	}
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}

	c, err := e.calls.AddCandidate(ctx, id, side, candidate)
	if err != nil {
		return nil, toAppError(err)
	}
	return c, nil
}

// Candidates lists one side's candidates in discovery order.
func (e *Exchange) Candidates(ctx context.Context, id string, side model.CandidateSide) ([]model.Candidate, error) {
	if !side.Valid() {
		return nil, apperrors.InvalidArg("side must be offerer or answerer")
	}
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}

	cs, err := e.calls.ListCandidates(ctx, id, side)
	if err != nil {
		return nil, toAppError(err)
	}
	return cs, nil
}

// Watch follows the session record. A nil snapshot means it was deleted.
func (e *Exchange) Watch(ctx context.Context, id string) (*repo.Feed[*model.CallSession], error) {
	feed, err := e.calls.Watch(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	return feed, nil
}

// WatchCandidates follows one side's candidate set.
func (e *Exchange) WatchCandidates(ctx context.Context, id string, side model.CandidateSide) (*repo.Feed[[]model.Candidate], error) {
	if !side.Valid() {
		return nil, apperrors.InvalidArg("side must be offerer or answerer")
	}
	feed, err := e.calls.WatchCandidates(ctx, id, side)
	if err != nil {
		return nil, toAppError(err)
	}
	return feed, nil
}

// HangUp deletes the session and both candidate sets. Hanging up an
// unknown or already deleted session is not an error.
func (e *Exchange) HangUp(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidArg("session id is required")
	}
	if err := e.calls.Delete(ctx, id); err != nil {
		e.logger.Error("failed to delete call session",
			zap.String("session_id", id),
			zap.Error(err),
		)
		return toAppError(err)
	}

	metrics.RecordCallEnded("hangup")
	return nil
}

// Sweep deletes negotiating sessions that were never answered within the
// stale TTL. It returns how many were removed.
func (e *Exchange) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	stale, err := e.calls.ListStale(ctx, e.cutoff())
	if err != nil {
		return 0, toAppError(err)
	}

	removed := 0
	for _, s := range stale {
		if err := e.calls.Delete(ctx, s.ID); err != nil {
			e.logger.Warn("failed to sweep call session",
				zap.String("session_id", s.ID),
				zap.Error(err),
			)
			continue
		}
		removed++
		metrics.RecordCallEnded("swept")
		e.logger.Info("call session swept",
			zap.String("session_id", s.ID),
			zap.Time("created_at", s.CreatedAt),
		)
	}
	return removed, nil
}

func (e *Exchange) cutoff() time.Time {
	return e.now().Add(-e.staleTTL)
}

func toAppError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repo.ErrCallSessionNotFound):
		return ErrUnknownSession
	case errors.Is(err, repo.ErrCallAlreadyAnswered):
		return apperrors.Wrap(apperrors.CodeFailedPrecondition, "call already answered", err)
	case errors.Is(err, repo.ErrCallSessionExists):
		return apperrors.Wrap(apperrors.CodeFailedPrecondition, "call session already exists", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.Unavailable("call store unavailable", err)
	}
}
