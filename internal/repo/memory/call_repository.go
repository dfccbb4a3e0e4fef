package memory

import (
	"Campus/internal/model"
	"Campus/internal/repo"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type candidateKey struct {
	session string
	side    model.CandidateSide
}

func (k candidateKey) String() string {
	return k.session + "|" + string(k.side)
}

// CallRepository keeps sessions and candidate sets in maps. Writes counts
// every mutation that reached the store.
type CallRepository struct {
	mu         sync.Mutex
	opts       options
	sessions   map[string]model.CallSession
	candidates map[candidateKey][]model.Candidate
	writes     int

	sessionSubs   subscribers[*model.CallSession]
	candidateSubs subscribers[[]model.Candidate]
}

var _ repo.CallRepository = (*CallRepository)(nil)

func NewCallRepository(opts ...Option) *CallRepository {
	return &CallRepository{
		opts:          buildOptions(opts),
		sessions:      make(map[string]model.CallSession),
		candidates:    make(map[candidateKey][]model.Candidate),
		sessionSubs:   make(subscribers[*model.CallSession]),
		candidateSubs: make(subscribers[[]model.Candidate]),
	}
}

// Writes returns the number of successful mutations so far.
func (r *CallRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *CallRepository) Create(_ context.Context, session *model.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; ok {
		return repo.ErrCallSessionExists
	}
	r.sessions[session.ID] = *session
	r.writes++
	r.notifySession(session.ID)
	return nil
}

func (r *CallRepository) Get(_ context.Context, id string) (*model.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repo.ErrCallSessionNotFound
	}
	return &s, nil
}

func (r *CallRepository) SetAnswer(_ context.Context, id string, answer model.SessionDescription) (*model.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repo.ErrCallSessionNotFound
	}
	if s.Answer != nil {
		return nil, repo.ErrCallAlreadyAnswered
	}

	s.Answer = &answer
	s.State = model.CallActive
	s.UpdatedAt = r.opts.now()
	r.sessions[id] = s
	r.writes++

	r.notifySession(id)
	return &s, nil
}

func (r *CallRepository) AddCandidate(_ context.Context, id string, side model.CandidateSide, init model.CandidateInit) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repo.ErrCallSessionNotFound
	}

	var seq int64
	if side == model.SideOfferer {
		s.OffererCandidates++
		seq = s.OffererCandidates
	} else {
		s.AnswererCandidates++
		seq = s.AnswererCandidates
	}
	s.UpdatedAt = r.opts.now()
	r.sessions[id] = s

	c := model.Candidate{
		ID:        uuid.New().String(),
		SessionID: id,
		Side:      side,
		Seq:       seq,
		Init:      init,
		CreatedAt: s.UpdatedAt,
	}
	key := candidateKey{session: id, side: side}
	r.candidates[key] = append(r.candidates[key], c)
	r.writes++

	r.notifyCandidates(key)
	return &c, nil
}

func (r *CallRepository) ListCandidates(_ context.Context, id string, side model.CandidateSide) ([]model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidateSnapshot(candidateKey{session: id, side: side}), nil
}

func (r *CallRepository) Watch(ctx context.Context, id string) (*repo.Feed[*model.CallSession], error) {
	feed := repo.NewFeed[*model.CallSession](ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	feed.Publish(r.sessionSnapshot(id))
	r.sessionSubs.add(id, feed)
	return feed, nil
}

func (r *CallRepository) WatchCandidates(ctx context.Context, id string, side model.CandidateSide) (*repo.Feed[[]model.Candidate], error) {
	feed := repo.NewFeed[[]model.Candidate](ctx)
	key := candidateKey{session: id, side: side}

	r.mu.Lock()
	defer r.mu.Unlock()

	feed.Publish(r.candidateSnapshot(key))
	r.candidateSubs.add(key.String(), feed)
	return feed, nil
}

func (r *CallRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return nil
	}
	delete(r.sessions, id)
	r.writes++
	r.notifySession(id)

	for _, side := range []model.CandidateSide{model.SideOfferer, model.SideAnswerer} {
		key := candidateKey{session: id, side: side}
		if _, ok := r.candidates[key]; ok {
			delete(r.candidates, key)
			r.notifyCandidates(key)
		}
	}
	return nil
}

func (r *CallRepository) ListStale(_ context.Context, cutoff time.Time) ([]model.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []model.CallSession
	for _, s := range r.sessions {
		if s.StaleAt(cutoff) {
			stale = append(stale, s)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	return stale, nil
}

func (r *CallRepository) sessionSnapshot(id string) *model.CallSession {
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return &s
}

func (r *CallRepository) candidateSnapshot(key candidateKey) []model.Candidate {
	cs := r.candidates[key]
	out := make([]model.Candidate, len(cs))
	copy(out, cs)
	return out
}

func (r *CallRepository) notifySession(id string) {
	if _, ok := r.sessionSubs[id]; ok {
		r.sessionSubs.publish(id, r.sessionSnapshot(id))
	}
}

func (r *CallRepository) notifyCandidates(key candidateKey) {
	if _, ok := r.candidateSubs[key.String()]; ok {
		r.candidateSubs.publish(key.String(), r.candidateSnapshot(key))
	}
}
