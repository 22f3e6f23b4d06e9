package tournament

import (
	"context"
	"time"
)

// Store is the document store behind the tournament. Implementations must make
// CreateParticipant create-once, ClaimReferral a single atomic update and
// PublishSnapshot an all-or-nothing replace.
type Store interface {
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ParticipantByToken(ctx context.Context, token string) (Participant, error)
	// CreateParticipant inserts p unless a record with the same ID exists and
	// returns whichever record is stored afterwards.
	CreateParticipant(ctx context.Context, p Participant) (Participant, error)
	// ClaimReferral credits referrerID with candidateID. It reports false when
	// the candidate was already claimed by anyone or the referrer is unknown.
	ClaimReferral(ctx context.Context, candidateID, referrerID string) (bool, error)
	TouchActivation(ctx context.Context, id, displayName string, at time.Time) error
	CountAbove(ctx context.Context, referralCount int64) (int64, error)
	TopParticipants(ctx context.Context, limit int) ([]Entry, error)
	PublishSnapshot(ctx context.Context, s Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}
