package memory

import (
	"context"
	"testing"
	"time"

	"Campus/internal/model"
	"Campus/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, createdAt time.Time) *model.CallSession {
	return &model.CallSession{
		ID:        id,
		CallerID:  "amara",
		Offer:     &model.SessionDescription{Type: "offer", SDP: "v=0"},
		State:     model.CallNegotiating,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCallCreateAndAnswer(t *testing.T) {
	r := NewCallRepository()
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newSession("s1", time.Now())))
	assert.ErrorIs(t, r.Create(ctx, newSession("s1", time.Now())), repo.ErrCallSessionExists)

	s, err := r.SetAnswer(ctx, "s1", model.SessionDescription{Type: "answer", SDP: "v=0"})
	require.NoError(t, err)
	assert.Equal(t, model.CallActive, s.State)

	_, err = r.SetAnswer(ctx, "s1", model.SessionDescription{Type: "answer", SDP: "other"})
	assert.ErrorIs(t, err, repo.ErrCallAlreadyAnswered)

	_, err = r.SetAnswer(ctx, "missing", model.SessionDescription{Type: "answer"})
	assert.ErrorIs(t, err, repo.ErrCallSessionNotFound)
}

func TestCandidatesAreSequencedPerSide(t *testing.T) {
	r := NewCallRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, newSession("s1", time.Now())))

	for _, c := range []string{"a", "b", "c"} {
		_, err := r.AddCandidate(ctx, "s1", model.SideOfferer, model.CandidateInit{Candidate: c})
		require.NoError(t, err)
	}
	_, err := r.AddCandidate(ctx, "s1", model.SideAnswerer, model.CandidateInit{Candidate: "z"})
	require.NoError(t, err)

	offerer, err := r.ListCandidates(ctx, "s1", model.SideOfferer)
	require.NoError(t, err)
	require.Len(t, offerer, 3)
	for i, c := range offerer {
		assert.Equal(t, int64(i+1), c.Seq)
	}

	answerer, err := r.ListCandidates(ctx, "s1", model.SideAnswerer)
	require.NoError(t, err)
	require.Len(t, answerer, 1)
	assert.Equal(t, int64(1), answerer[0].Seq)

	_, err = r.AddCandidate(ctx, "missing", model.SideOfferer, model.CandidateInit{Candidate: "a"})
	assert.ErrorIs(t, err, repo.ErrCallSessionNotFound)
}

func TestCallDeletePurgesEverything(t *testing.T) {
	r := NewCallRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Create(ctx, newSession("s1", time.Now())))
	_, err := r.AddCandidate(ctx, "s1", model.SideOfferer, model.CandidateInit{Candidate: "a"})
	require.NoError(t, err)
	_, err = r.AddCandidate(ctx, "s1", model.SideAnswerer, model.CandidateInit{Candidate: "b"})
	require.NoError(t, err)

	watch, err := r.Watch(ctx, "s1")
	require.NoError(t, err)
	first := <-watch.Updates()
	require.NotNil(t, first)

	require.NoError(t, r.Delete(ctx, "s1"))

	select {
	case s := <-watch.Updates():
		assert.Nil(t, s)
	case <-time.After(time.Second):
		t.Fatal("watcher did not observe the delete")
	}

	_, err = r.Get(ctx, "s1")
	assert.ErrorIs(t, err, repo.ErrCallSessionNotFound)
	for _, side := range []model.CandidateSide{model.SideOfferer, model.SideAnswerer} {
		cs, err := r.ListCandidates(ctx, "s1", side)
		require.NoError(t, err)
		assert.Empty(t, cs)
	}

	writes := r.Writes()
	require.NoError(t, r.Delete(ctx, "s1"))
	assert.Equal(t, writes, r.Writes())
}

func TestListStale(t *testing.T) {
	r := NewCallRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Create(ctx, newSession("old", now.Add(-time.Hour))))
	require.NoError(t, r.Create(ctx, newSession("fresh", now)))
	require.NoError(t, r.Create(ctx, newSession("answered", now.Add(-time.Hour))))
	_, err := r.SetAnswer(ctx, "answered", model.SessionDescription{Type: "answer"})
	require.NoError(t, err)

	stale, err := r.ListStale(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}
