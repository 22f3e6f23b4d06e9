package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reftourney/internal/tournament"
)

// Postgres stores the tournament in the tournament schema created by
// db.Migrate. The referrals table is the reverse index: its primary key on
// referee_id is what guarantees a single referrer per candidate.
type Postgres struct {
	db *pgxpool.Pool
}

var _ tournament.Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

const participantColumns = `user_id, display_name, referral_token, referred_by, referral_count, referred_ids, joined_at, last_activation`

func scanParticipant(row pgx.Row) (tournament.Participant, error) {
	var p tournament.Participant
	err := row.Scan(&p.ID, &p.DisplayName, &p.ReferralToken, &p.ReferredBy, &p.ReferralCount, &p.ReferredSet, &p.JoinedAt, &p.LastActivation)
	if errors.Is(err, pgx.ErrNoRows) {
		return tournament.Participant{}, tournament.ErrNotFound
	}
	if err != nil {
		return tournament.Participant{}, err
	}
	if p.ReferredSet == nil {
		p.ReferredSet = []string{}
	}
	return p, nil
}

func (s *Postgres) GetParticipant(ctx context.Context, id string) (tournament.Participant, error) {
	return scanParticipant(s.db.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM tournament.participants
		WHERE user_id = $1
	`, id))
}

func (s *Postgres) ParticipantByToken(ctx context.Context, token string) (tournament.Participant, error) {
	return scanParticipant(s.db.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM tournament.participants
		WHERE referral_token = $1
	`, token))
}

func (s *Postgres) CreateParticipant(ctx context.Context, p tournament.Participant) (tournament.Participant, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tournament.participants (user_id, display_name, referral_token, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, p.ID, p.DisplayName, p.ReferralToken, p.JoinedAt)
	if err != nil {
		return tournament.Participant{}, err
	}
	return s.GetParticipant(ctx, p.ID)
}

func (s *Postgres) ClaimReferral(ctx context.Context, candidateID, referrerID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO tournament.referrals (referee_id, referrer_id)
		SELECT $1::text, $2::text
		WHERE $1::text <> $2::text
		  AND EXISTS (SELECT 1 FROM tournament.participants WHERE user_id = $1)
		  AND EXISTS (SELECT 1 FROM tournament.participants WHERE user_id = $2)
		ON CONFLICT (referee_id) DO NOTHING
	`, candidateID, referrerID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tournament.participants
		SET referral_count = referral_count + 1,
		    referred_ids = array_append(referred_ids, $1)
		WHERE user_id = $2
	`, candidateID, referrerID); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tournament.participants
		SET referred_by = $2
		WHERE user_id = $1 AND referred_by IS NULL
	`, candidateID, referrerID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Postgres) TouchActivation(ctx context.Context, id, displayName string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE tournament.participants
		SET last_activation = $2,
		    display_name = CASE WHEN $3::text = '' THEN display_name ELSE $3::text END
		WHERE user_id = $1
	`, id, at, displayName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrNotFound
	}
	return nil
}

func (s *Postgres) CountAbove(ctx context.Context, referralCount int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM tournament.participants
		WHERE referral_count > $1
	`, referralCount).Scan(&n)
	return n, err
}

func (s *Postgres) TopParticipants(ctx context.Context, limit int) ([]tournament.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, display_name, referral_count
		FROM tournament.participants
		ORDER BY referral_count DESC, joined_at ASC, user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tournament.Entry
	for rows.Next() {
		var e tournament.Entry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.ReferralCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PublishSnapshot swaps the whole snapshot table in one transaction, so
// readers see either the old rows or the new ones.
func (s *Postgres) PublishSnapshot(ctx context.Context, snap tournament.Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tournament.leaderboard_snapshot`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"tournament", "leaderboard_snapshot"},
		[]string{"position", "snapshot_id", "published_at", "user_id", "display_name", "referral_count"},
		pgx.CopyFromSlice(len(snap.Entries), func(i int) ([]any, error) {
			e := snap.Entries[i]
			return []any{int32(e.Position), snap.ID, snap.PublishedAt, e.UserID, e.DisplayName, e.ReferralCount}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy snapshot: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) LoadSnapshot(ctx context.Context) (tournament.Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT position, snapshot_id, published_at, user_id, display_name, referral_count
		FROM tournament.leaderboard_snapshot
		ORDER BY position ASC
	`)
	if err != nil {
		return tournament.Snapshot{}, err
	}
	defer rows.Close()

	var snap tournament.Snapshot
	for rows.Next() {
		var (
			e        tournament.Entry
			position int32
		)
		if err := rows.Scan(&position, &snap.ID, &snap.PublishedAt, &e.UserID, &e.DisplayName, &e.ReferralCount); err != nil {
			return tournament.Snapshot{}, err
		}
		e.Position = int(position)
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return tournament.Snapshot{}, err
	}
	if len(snap.Entries) == 0 {
		return tournament.Snapshot{}, tournament.ErrNotFound
	}
	return snap, nil
}
