package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"reftourney/internal/tournament"
)

var (
	bucketParticipants = []byte("participants")
	bucketTokens       = []byte("tokens")
	bucketReferrals    = []byte("referrals")
	bucketSnapshot     = []byte("leaderboard_snapshot")

	snapshotKey = []byte("current")
)

// Bolt is a single-file store. bbolt serialises writers, so every Update
// closure is an atomic document update.
type Bolt struct {
	db *bbolt.DB
}

var _ tournament.Store = (*Bolt)(nil)

// OpenBolt opens or creates the database at path, creating the parent
// directory when needed.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("bolt store: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt store: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketParticipants, bucketTokens, bucketReferrals, bucketSnapshot} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt store: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) GetParticipant(_ context.Context, id string) (tournament.Participant, error) {
	var p tournament.Participant
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		p, err = readParticipant(tx, id)
		return err
	})
	return p, err
}

func (b *Bolt) ParticipantByToken(_ context.Context, token string) (tournament.Participant, error) {
	var p tournament.Participant
	err := b.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketTokens).Get([]byte(token))
		if id == nil {
			return tournament.ErrNotFound
		}
		var err error
		p, err = readParticipant(tx, string(id))
		return err
	})
	return p, err
}

func (b *Bolt) CreateParticipant(_ context.Context, p tournament.Participant) (tournament.Participant, error) {
	var out tournament.Participant
	err := b.db.Update(func(tx *bbolt.Tx) error {
		existing, err := readParticipant(tx, p.ID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, tournament.ErrNotFound) {
			return err
		}
		if p.ReferredSet == nil {
			p.ReferredSet = []string{}
		}
		if err := writeParticipant(tx, p); err != nil {
			return err
		}
		if err := tx.Bucket(bucketTokens).Put([]byte(p.ReferralToken), []byte(p.ID)); err != nil {
			return fmt.Errorf("put token: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

func (b *Bolt) ClaimReferral(_ context.Context, candidateID, referrerID string) (bool, error) {
	claimed := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if candidateID == referrerID {
			return nil
		}
		refs := tx.Bucket(bucketReferrals)
		if refs.Get([]byte(candidateID)) != nil {
			return nil
		}
		referrer, err := readParticipant(tx, referrerID)
		if errors.Is(err, tournament.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := refs.Put([]byte(candidateID), []byte(referrerID)); err != nil {
			return fmt.Errorf("put referral: %w", err)
		}
		referrer.ReferredSet = append(referrer.ReferredSet, candidateID)
		referrer.ReferralCount++
		if err := writeParticipant(tx, referrer); err != nil {
			return err
		}

		candidate, err := readParticipant(tx, candidateID)
		switch {
		case errors.Is(err, tournament.ErrNotFound):
		case err != nil:
			return err
		case candidate.ReferredBy == nil:
			candidate.ReferredBy = &referrerID
			if err := writeParticipant(tx, candidate); err != nil {
				return err
			}
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (b *Bolt) TouchActivation(_ context.Context, id, displayName string, at time.Time) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		p, err := readParticipant(tx, id)
		if err != nil {
			return err
		}
		p.LastActivation = &at
		if displayName != "" {
			p.DisplayName = displayName
		}
		return writeParticipant(tx, p)
	})
}

func (b *Bolt) CountAbove(_ context.Context, referralCount int64) (int64, error) {
	var n int64
	err := b.forEach(func(p tournament.Participant) {
		if p.ReferralCount > referralCount {
			n++
		}
	})
	return n, err
}

func (b *Bolt) TopParticipants(_ context.Context, limit int) ([]tournament.Entry, error) {
	var all []tournament.Participant
	if err := b.forEach(func(p tournament.Participant) { all = append(all, p) }); err != nil {
		return nil, err
	}
	return topEntries(all, limit), nil
}

func (b *Bolt) PublishSnapshot(_ context.Context, s tournament.Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(snapshotKey, raw)
	})
}

func (b *Bolt) LoadSnapshot(_ context.Context) (tournament.Snapshot, error) {
	var s tournament.Snapshot
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketSnapshot).Get(snapshotKey)
		if raw == nil {
			return tournament.ErrNotFound
		}
		return json.Unmarshal(raw, &s)
	})
	return s, err
}

func (b *Bolt) forEach(fn func(tournament.Participant)) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketParticipants).ForEach(func(_, v []byte) error {
			var p tournament.Participant
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode participant: %w", err)
			}
			fn(p)
			return nil
		})
	})
}

func readParticipant(tx *bbolt.Tx, id string) (tournament.Participant, error) {
	raw := tx.Bucket(bucketParticipants).Get([]byte(id))
	if raw == nil {
		return tournament.Participant{}, tournament.ErrNotFound
	}
	var p tournament.Participant
	if err := json.Unmarshal(raw, &p); err != nil {
		return tournament.Participant{}, fmt.Errorf("decode participant %q: %w", id, err)
	}
	return p, nil
}

func writeParticipant(tx *bbolt.Tx, p tournament.Participant) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}
	if err := tx.Bucket(bucketParticipants).Put([]byte(p.ID), raw); err != nil {
		return fmt.Errorf("put participant: %w", err)
	}
	return nil
}
