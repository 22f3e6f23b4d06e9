package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Registry struct {
	store  Store
	secret []byte
	now    func() time.Time
}

func NewRegistry(store Store, secret []byte) *Registry {
	return &Registry{store: store, secret: secret, now: time.Now}
}

// GetOrCreate returns the participant for id, creating it on first sight.
// Concurrent callers for the same id all observe the single stored record.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (Participant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Participant{}, ErrInvalidIdentifier
	}
	p, err := r.store.GetParticipant(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Participant{}, unavailable("get participant", err)
	}

	p, err = r.store.CreateParticipant(ctx, Participant{
		ID:            id,
		ReferralToken: DeriveToken(r.secret, id),
		ReferredSet:   []string{},
		JoinedAt:      r.now().UTC(),
	})
	if err != nil {
		return Participant{}, unavailable("create participant", err)
	}
	return p, nil
}

// Lookup returns the stored participant or ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, id string) (Participant, error) {
	p, err := r.store.GetParticipant(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Participant{}, ErrNotFound
		}
		return Participant{}, unavailable("get participant", err)
	}
	return p, nil
}

// ResolveToken maps a referral token back to its owner.
func (r *Registry) ResolveToken(ctx context.Context, token string) (Participant, error) {
	p, err := r.store.ParticipantByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Participant{}, ErrNotFound
		}
		return Participant{}, unavailable("resolve referral token", err)
	}
	return p, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
