package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS tournament`,
	`CREATE TABLE IF NOT EXISTS tournament.participants (
		user_id          TEXT PRIMARY KEY,
		display_name     TEXT NOT NULL DEFAULT '',
		referral_token   TEXT NOT NULL UNIQUE,
		referred_by      TEXT NULL,
		referral_count   BIGINT NOT NULL DEFAULT 0 CHECK (referral_count >= 0),
		referred_ids     TEXT[] NOT NULL DEFAULT '{}',
		joined_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_activation  TIMESTAMPTZ NULL,
		CHECK (referred_by IS NULL OR referred_by <> user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS participants_rank_idx
		ON tournament.participants (referral_count DESC, joined_at ASC, user_id ASC)`,
	`CREATE TABLE IF NOT EXISTS tournament.referrals (
		referee_id   TEXT PRIMARY KEY REFERENCES tournament.participants (user_id),
		referrer_id  TEXT NOT NULL REFERENCES tournament.participants (user_id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (referee_id <> referrer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tournament.leaderboard_snapshot (
		position        INT PRIMARY KEY,
		snapshot_id     TEXT NOT NULL,
		published_at    TIMESTAMPTZ NOT NULL,
		user_id         TEXT NOT NULL,
		display_name    TEXT NOT NULL DEFAULT '',
		referral_count  BIGINT NOT NULL
	)`,
}

// Migrate creates the tournament schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
