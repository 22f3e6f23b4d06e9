package tournament

import (
	"strings"
	"time"
)

// Config is everything the tournament needs to know about itself. It is built
// once by the caller and never read from the environment here.
type Config struct {
	Start time.Time
	End   time.Time

	PrizePool      string
	SupportContact string
	UpdateChannel  string
	JoinURL        string

	// ReferralLinkFormat holds a {payload} placeholder, e.g.
	// https://wa.me/15550100?text=start%20{payload}
	ReferralLinkFormat string
	TokenSecret        []byte

	LeaderboardSize int
	RefreshEvery    time.Duration
	// FollowSnapshots makes the leaderboard load snapshots published by another
	// process instead of computing them.
	FollowSnapshots bool
}

func (c Config) withDefaults() Config {
	if c.LeaderboardSize <= 0 {
		c.LeaderboardSize = DefaultLeaderboardSize
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = DefaultRefreshEvery
	}
	if c.End.IsZero() && !c.Start.IsZero() {
		c.End = c.Start.Add(DefaultDuration)
	}
	if strings.TrimSpace(c.ReferralLinkFormat) == "" {
		c.ReferralLinkFormat = "{payload}"
	}
	return c
}

// Active reports whether t falls inside [Start, End). A zero bound is open.
func (c Config) Active(t time.Time) bool {
	if !c.Start.IsZero() && t.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && !t.Before(c.End) {
		return false
	}
	return true
}

func (c Config) ReferralLink(token string) string {
	return strings.ReplaceAll(c.ReferralLinkFormat, "{payload}", Payload(token))
}
