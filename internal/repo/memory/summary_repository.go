package memory

import (
	"Campus/internal/model"
	"Campus/internal/repo"
	"context"
	"sort"
	"sync"
)

type SummaryRepository struct {
	mu        sync.Mutex
	summaries map[string]map[string]model.ChatSummary // owner -> peer -> summary
}

var _ repo.SummaryRepository = (*SummaryRepository)(nil)

func NewSummaryRepository() *SummaryRepository {
	return &SummaryRepository{summaries: make(map[string]map[string]model.ChatSummary)}
}

func (r *SummaryRepository) Upsert(_ context.Context, summary model.ChatSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers, ok := r.summaries[summary.OwnerID]
	if !ok {
		peers = make(map[string]model.ChatSummary)
		r.summaries[summary.OwnerID] = peers
	}
	peers[summary.PeerID] = summary
	return nil
}

func (r *SummaryRepository) Remove(_ context.Context, ownerID, peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.summaries[ownerID], peerID)
	return nil
}

func (r *SummaryRepository) List(_ context.Context, ownerID string) ([]model.ChatSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := r.summaries[ownerID]
	out := make([]model.ChatSummary, 0, len(peers))
	for _, s := range peers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].LastAt.After(out[j].LastAt)
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out, nil
}
