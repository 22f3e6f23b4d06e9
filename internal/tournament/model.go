package tournament

import (
	"errors"
	"time"
)

const (
	DefaultLeaderboardSize = 10
	DefaultRefreshEvery    = 300 * time.Second
	DefaultDuration        = 10 * 24 * time.Hour
)

var (
	ErrNotFound          = errors.New("participant not found")
	ErrUnavailable       = errors.New("storage unavailable")
	ErrInvalidIdentifier = errors.New("participant identifier is required")
)

type Participant struct {
	ID             string     `json:"user_id"`
	DisplayName    string     `json:"display_name,omitempty"`
	ReferralToken  string     `json:"referral_token"`
	ReferredBy     *string    `json:"referred_by,omitempty"`
	ReferralCount  int64      `json:"referral_count"`
	ReferredSet    []string   `json:"referred_set"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastActivation *time.Time `json:"last_activation,omitempty"`
}

// Name is what the leaderboard shows for a participant.
func (p Participant) Name() string {
	return displayName(p.DisplayName, p.ID)
}

type Entry struct {
	Position      int    `json:"position"`
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name,omitempty"`
	ReferralCount int64  `json:"referral_count"`
}

func (e Entry) Name() string {
	return displayName(e.DisplayName, e.UserID)
}

type Snapshot struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
	Entries     []Entry   `json:"entries"`
}

func (s Snapshot) Empty() bool {
	return len(s.Entries) == 0
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return "User " + id
}
