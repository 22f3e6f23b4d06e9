package tournament

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

const (
	SkipNoReferrer      = "no_referrer"
	SkipUnknownReferrer = "unknown_referrer"
	SkipSelfReferral    = "self_referral"
	SkipAlreadyReferred = "already_referred"
)

type Attribution struct {
	Applied    bool   `json:"applied"`
	ReferrerID string `json:"referrer_id,omitempty"`
	// Reason is set when the referral was skipped.
	Reason string `json:"reason,omitempty"`
}

type AttributionEngine struct {
	store Store
	log   *slog.Logger
}

func NewAttributionEngine(store Store, logger *slog.Logger) *AttributionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttributionEngine{store: store, log: logger}
}

// Apply credits referrerID with candidateID at most once. Failed preconditions
// are not errors; the returned Attribution carries the skip reason.
func (e *AttributionEngine) Apply(ctx context.Context, candidateID, referrerID string) (Attribution, error) {
	candidateID = strings.TrimSpace(candidateID)
	referrerID = strings.TrimSpace(referrerID)

	if referrerID == "" {
		return e.skip(Attribution{Reason: SkipNoReferrer}), nil
	}
	out := Attribution{ReferrerID: referrerID}
	if _, err := e.store.GetParticipant(ctx, referrerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			out.Reason = SkipUnknownReferrer
			return e.skip(out), nil
		}
		return Attribution{}, unavailable("get referrer", err)
	}
	if referrerID == candidateID {
		out.Reason = SkipSelfReferral
		return e.skip(out), nil
	}

	claimed, err := e.store.ClaimReferral(ctx, candidateID, referrerID)
	if err != nil {
		return Attribution{}, unavailable("claim referral", err)
	}
	if !claimed {
		out.Reason = SkipAlreadyReferred
		return e.skip(out), nil
	}
	out.Applied = true
	referralsApplied.Inc()
	e.log.Info("referral applied", "referrer_id", referrerID, "candidate_id", candidateID)
	return out, nil
}

func (e *AttributionEngine) skip(a Attribution) Attribution {
	referralsSkipped.WithLabelValues(a.Reason).Inc()
	return a
}
