package signaling

import "Campus/internal/model"

// CandidateCursor walks one side's candidate snapshots in seq order. Seqs
// start at 1. A candidate is handed out only when every lower seq has been,
// so a gap holds the walk until a later snapshot fills it.
type CandidateCursor struct {
	last int64
}

// Next returns the candidates of list that directly follow the last one
// returned. list must be sorted by seq.
func (c *CandidateCursor) Next(list []model.Candidate) []model.Candidate {
	var out []model.Candidate
	for _, cand := range list {
		if cand.Seq <= c.last {
			continue
		}
		if cand.Seq != c.last+1 {
			break
		}
		out = append(out, cand)
		c.last = cand.Seq
	}
	return out
}

// Last is the seq of the last candidate handed out, 0 before the first.
func (c *CandidateCursor) Last() int64 {
	return c.last
}
