package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"reftourney/internal/tournament"
)

// Memory keeps the tournament in process memory. A single mutex makes every
// operation atomic.
type Memory struct {
	mu           sync.RWMutex
	participants map[string]*tournament.Participant
	tokens       map[string]string
	referrals    map[string]string
	snapshot     *tournament.Snapshot
}

var _ tournament.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		participants: make(map[string]*tournament.Participant),
		tokens:       make(map[string]string),
		referrals:    make(map[string]string),
	}
}

func (m *Memory) GetParticipant(_ context.Context, id string) (tournament.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[id]
	if !ok {
		return tournament.Participant{}, tournament.ErrNotFound
	}
	return clone(p), nil
}

func (m *Memory) ParticipantByToken(_ context.Context, token string) (tournament.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tokens[token]
	if !ok {
		return tournament.Participant{}, tournament.ErrNotFound
	}
	return clone(m.participants[id]), nil
}

func (m *Memory) CreateParticipant(_ context.Context, p tournament.Participant) (tournament.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.participants[p.ID]; ok {
		return clone(existing), nil
	}
	stored := clone(&p)
	m.participants[p.ID] = &stored
	m.tokens[p.ReferralToken] = p.ID
	return clone(&stored), nil
}

func (m *Memory) ClaimReferral(_ context.Context, candidateID, referrerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if candidateID == referrerID {
		return false, nil
	}
	if _, taken := m.referrals[candidateID]; taken {
		return false, nil
	}
	referrer, ok := m.participants[referrerID]
	if !ok {
		return false, nil
	}
	m.referrals[candidateID] = referrerID
	referrer.ReferredSet = append(referrer.ReferredSet, candidateID)
	referrer.ReferralCount++
	if candidate, ok := m.participants[candidateID]; ok && candidate.ReferredBy == nil {
		by := referrerID
		candidate.ReferredBy = &by
	}
	return true, nil
}

func (m *Memory) TouchActivation(_ context.Context, id, displayName string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return tournament.ErrNotFound
	}
	p.LastActivation = &at
	if displayName != "" {
		p.DisplayName = displayName
	}
	return nil
}

func (m *Memory) CountAbove(_ context.Context, referralCount int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.participants {
		if p.ReferralCount > referralCount {
			n++
		}
	}
	return n, nil
}

func (m *Memory) TopParticipants(_ context.Context, limit int) ([]tournament.Entry, error) {
	m.mu.RLock()
	all := make([]tournament.Participant, 0, len(m.participants))
	for _, p := range m.participants {
		all = append(all, *p)
	}
	m.mu.RUnlock()
	return topEntries(all, limit), nil
}

func (m *Memory) PublishSnapshot(_ context.Context, s tournament.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Entries = append([]tournament.Entry(nil), s.Entries...)
	m.snapshot = &s
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context) (tournament.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return tournament.Snapshot{}, tournament.ErrNotFound
	}
	s := *m.snapshot
	s.Entries = append([]tournament.Entry(nil), s.Entries...)
	return s, nil
}

func clone(p *tournament.Participant) tournament.Participant {
	out := *p
	out.ReferredSet = append([]string{}, p.ReferredSet...)
	if p.ReferredBy != nil {
		by := *p.ReferredBy
		out.ReferredBy = &by
	}
	if p.LastActivation != nil {
		at := *p.LastActivation
		out.LastActivation = &at
	}
	return out
}

// topEntries orders by referral count, then join time, then identifier.
func topEntries(all []tournament.Participant, limit int) []tournament.Entry {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.ReferralCount != b.ReferralCount {
			return a.ReferralCount > b.ReferralCount
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]tournament.Entry, 0, len(all))
	for _, p := range all {
		out = append(out, tournament.Entry{
			UserID:        p.ID,
			DisplayName:   p.DisplayName,
			ReferralCount: p.ReferralCount,
		})
	}
	return out
}
