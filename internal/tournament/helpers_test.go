package tournament_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reftourney/internal/store"
	"reftourney/internal/tournament"
)

var errBackend = errors.New("connection refused")

// flakyStore wraps a real store and injects failures on demand.
type flakyStore struct {
	tournament.Store

	mu       sync.Mutex
	failGet  bool
	failTop  bool
	emptyTop bool
	topCalls int
}

func (f *flakyStore) set(fn func(*flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *flakyStore) GetParticipant(ctx context.Context, id string) (tournament.Participant, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return tournament.Participant{}, errBackend
	}
	return f.Store.GetParticipant(ctx, id)
}

func (f *flakyStore) TopParticipants(ctx context.Context, limit int) ([]tournament.Entry, error) {
	f.mu.Lock()
	f.topCalls++
	fail, empty := f.failTop, f.emptyTop
	f.mu.Unlock()
	if fail {
		return nil, errBackend
	}
	if empty {
		return nil, nil
	}
	return f.Store.TopParticipants(ctx, limit)
}

func (f *flakyStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topCalls
}

type staticGate struct {
	ok  bool
	err error
}

func (g staticGate) IsEligible(context.Context, string) (bool, error) { return g.ok, g.err }

func activeConfig() tournament.Config {
	now := time.Now()
	return tournament.Config{
		Start:              now.Add(-time.Hour),
		End:                now.Add(time.Hour),
		ReferralLinkFormat: "https://example.test/start?p={payload}",
		TokenSecret:        []byte("test-secret"),
	}
}

func newService(t *testing.T, cfg tournament.Config, gate tournament.Gate) (*tournament.Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return tournament.NewService(st, gate, cfg, nil), st
}

func activate(t *testing.T, svc *tournament.Service, userID, payload string) tournament.Activation {
	t.Helper()
	out, err := svc.Activate(context.Background(), tournament.ActivationRequest{UserID: userID, Payload: payload})
	require.NoError(t, err)
	return out
}

func payloadOf(t *testing.T, svc *tournament.Service, userID string) string {
	t.Helper()
	info, err := svc.ReferralInfo(context.Background(), userID)
	require.NoError(t, err)
	return tournament.Payload(info.Participant.ReferralToken)
}

func rankOf(t *testing.T, svc *tournament.Service, userID string) int64 {
	t.Helper()
	rank, found, err := svc.Rank(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, found)
	return rank
}
