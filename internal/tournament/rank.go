package tournament

import (
	"context"
	"errors"
)

type Ranker struct {
	store Store
}

func NewRanker(store Store) *Ranker {
	return &Ranker{store: store}
}

// Rank is one plus the number of participants with strictly more referrals.
// Tied participants share a rank and the next distinct count skips past all of
// them. found is false for unknown participants.
func (r *Ranker) Rank(ctx context.Context, id string) (rank int64, found bool, err error) {
	p, err := r.store.GetParticipant(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, unavailable("get participant", err)
	}
	return r.RankOf(ctx, p)
}

// RankOf ranks an already loaded participant.
func (r *Ranker) RankOf(ctx context.Context, p Participant) (int64, bool, error) {
	higher, err := r.store.CountAbove(ctx, p.ReferralCount)
	if err != nil {
		return 0, false, unavailable("count participants", err)
	}
	return higher + 1, true, nil
}
