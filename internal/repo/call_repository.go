package repo

import (
	"Campus/internal/db"
	"Campus/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type callRepository struct {
	sessions   *db.Repository[model.CallSession]
	candidates *db.Repository[model.Candidate]
	logger     *zap.Logger
	now        func() time.Time
}

// NewCallRepository stores sessions and candidates in two collections. The
// candidate sets are keyed by session_id and side.
func NewCallRepository(con *mongo.Database, sessions, candidates string, logger *zap.Logger) CallRepository {
	return &callRepository{
		sessions:   db.NewRepository[model.CallSession](con, sessions),
		candidates: db.NewRepository[model.Candidate](con, candidates),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *callRepository) Create(ctx context.Context, session *model.CallSession) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.sessions.Create(ctx, *session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrCallSessionExists
		}
		r.logger.Error("failed to create call session",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return fmt.Errorf("create call session: %w", err)
	}

	r.logger.Info("call session created",
		zap.String("session_id", session.ID),
		zap.String("caller_id", session.CallerID),
	)
	return nil
}

func (r *callRepository) Get(ctx context.Context, id string) (*model.CallSession, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	session, err := readWithRetry(ctx, r.logger, "get call session", func(ctx context.Context) (*model.CallSession, error) {
		return r.sessions.FindByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCallSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// SetAnswer only matches a session with no answer yet, so a second answer
// can never overwrite the first.
func (r *callRepository) SetAnswer(ctx context.Context, id string, answer model.SessionDescription) (*model.CallSession, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", id).Exists("answer", false).Build()
	update := bson.M{"$set": bson.M{
		"answer":     answer,
		"state":      model.CallActive,
		"updated_at": r.now().Truncate(time.Millisecond),
	}}

	session, err := r.sessions.FindOneAndUpdate(ctx, filter, update, false)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("set answer: %w", err)
	}

	exists, err := r.sessions.Exists(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("existence check failed: %w", err)
	}
	if exists {
		return nil, ErrCallAlreadyAnswered
	}
	return nil, ErrCallSessionNotFound
}

func counterField(side model.CandidateSide) string {
	if side == model.SideOfferer {
		return "offerer_candidates"
	}
	return "answerer_candidates"
}

// AddCandidate bumps the side's counter on the session first; that both
// assigns the sequence number and rejects unknown sessions without a write.
func (r *callRepository) AddCandidate(ctx context.Context, id string, side model.CandidateSide, init model.CandidateInit) (*model.Candidate, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	field := counterField(side)
	session, err := r.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: 1}, "$set": bson.M{"updated_at": r.now().Truncate(time.Millisecond)}},
		false,
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCallSessionNotFound
		}
		return nil, fmt.Errorf("allocate candidate sequence: %w", err)
	}

	seq := session.OffererCandidates
	if side == model.SideAnswerer {
		seq = session.AnswererCandidates
	}

	candidate := model.Candidate{
		ID:        uuid.New().String(),
		SessionID: id,
		Side:      side,
		Seq:       seq,
		Init:      init,
		CreatedAt: r.now().Truncate(time.Millisecond),
	}
	if _, err := r.candidates.Create(ctx, candidate); err != nil {
		r.logger.Error("failed to insert candidate",
			zap.String("session_id", id),
			zap.String("side", string(side)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insert candidate: %w", err)
	}

	// a hang-up may have purged the session between the two writes
	if exists, err := r.sessions.Exists(ctx, bson.M{"_id": id}); err == nil && !exists {
		_, _ = r.candidates.Delete(ctx, bson.M{"_id": candidate.ID})
		return nil, ErrCallSessionNotFound
	}

	return &candidate, nil
}

func (r *callRepository) ListCandidates(ctx context.Context, id string, side model.CandidateSide) ([]model.Candidate, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("session_id", id).Eq("side", side).Build()
	return readWithRetry(ctx, r.logger, "list candidates", func(ctx context.Context) ([]model.Candidate, error) {
		return r.candidates.FindAll(ctx, filter, db.AscendingBy("seq"))
	})
}

func (r *callRepository) Watch(ctx context.Context, id string) (*Feed[*model.CallSession], error) {
	feed := NewFeed[*model.CallSession](ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": id}}},
	}

	err := watchQuery(feed, r.logger.With(zap.String("session_id", id)),
		func(ctx context.Context) (*mongo.ChangeStream, error) {
			return r.sessions.Watch(ctx, pipeline)
		},
		func(ctx context.Context) (*model.CallSession, error) {
			session, err := r.Get(ctx, id)
			if errors.Is(err, ErrCallSessionNotFound) {
				return nil, nil
			}
			return session, err
		},
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (r *callRepository) WatchCandidates(ctx context.Context, id string, side model.CandidateSide) (*Feed[[]model.Candidate], error) {
	feed := NewFeed[[]model.Candidate](ctx)

	err := watchQuery(feed, r.logger.With(zap.String("session_id", id), zap.String("side", string(side))),
		func(ctx context.Context) (*mongo.ChangeStream, error) {
			return r.candidates.Watch(ctx, db.MatchChanges("session_id", id))
		},
		func(ctx context.Context) ([]model.Candidate, error) {
			return r.ListCandidates(ctx, id, side)
		},
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// Delete removes the session record first so watchers observe the end of
// the call, then purges both candidate sets.
func (r *callRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.sessions.Delete(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete call session: %w", err)
	}

	result, err := r.candidates.DeleteMany(ctx, bson.M{"session_id": id})
	if err != nil {
		return fmt.Errorf("purge candidates: %w", err)
	}

	r.logger.Info("call session deleted",
		zap.String("session_id", id),
		zap.Int64("candidates", result.DeletedCount),
	)
	return nil
}

func (r *callRepository) ListStale(ctx context.Context, cutoff time.Time) ([]model.CallSession, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("state", model.CallNegotiating).
		Exists("answer", false).
		Lt("created_at", cutoff).
		Build()

	return readWithRetry(ctx, r.logger, "list stale sessions", func(ctx context.Context) ([]model.CallSession, error) {
		return r.sessions.FindAll(ctx, filter, db.AscendingBy("created_at"))
	})
}
