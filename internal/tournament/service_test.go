package tournament_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reftourney/internal/store"
	"reftourney/internal/tournament"
)

func TestActivationWorkedExample(t *testing.T) {
	svc, st := newService(t, activeConfig(), nil)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C", "D"} {
		out := activate(t, svc, id, "")
		require.Equal(t, tournament.StatusActive, out.Status)
		require.False(t, out.Referral.Applied)
	}
	refA := payloadOf(t, svc, "A")

	require.True(t, activate(t, svc, "E", refA).Referral.Applied)
	require.True(t, activate(t, svc, "F", refA).Referral.Applied)

	self := activate(t, svc, "A", refA)
	require.False(t, self.Referral.Applied)
	require.Equal(t, tournament.SkipSelfReferral, self.Referral.Reason)

	a, err := st.GetParticipant(ctx, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 2, a.ReferralCount)
	assert.ElementsMatch(t, []string{"E", "F"}, a.ReferredSet)
	assert.Nil(t, a.ReferredBy)

	e, err := st.GetParticipant(ctx, "E")
	require.NoError(t, err)
	require.NotNil(t, e.ReferredBy)
	assert.Equal(t, "A", *e.ReferredBy)

	assert.EqualValues(t, 1, rankOf(t, svc, "A"))
	for _, id := range []string{"B", "C", "D"} {
		assert.EqualValues(t, 2, rankOf(t, svc, id), id)
	}
}

func TestRepeatActivationDoesNotRecredit(t *testing.T) {
	svc, st := newService(t, activeConfig(), nil)
	activate(t, svc, "A", "")
	activate(t, svc, "B", "")
	refA, refB := payloadOf(t, svc, "A"), payloadOf(t, svc, "B")

	require.True(t, activate(t, svc, "E", refA).Referral.Applied)

	again := activate(t, svc, "E", refA)
	assert.False(t, again.Referral.Applied)
	assert.Equal(t, tournament.SkipAlreadyReferred, again.Referral.Reason)

	other := activate(t, svc, "E", refB)
	assert.False(t, other.Referral.Applied)
	assert.Equal(t, tournament.SkipAlreadyReferred, other.Referral.Reason)

	a, err := st.GetParticipant(context.Background(), "A")
	require.NoError(t, err)
	b, err := st.GetParticipant(context.Background(), "B")
	require.NoError(t, err)
	assert.EqualValues(t, 1, a.ReferralCount)
	assert.Len(t, a.ReferredSet, 1)
	assert.EqualValues(t, 0, b.ReferralCount)
	assert.Empty(t, b.ReferredSet)
}

func TestConcurrentReferralsAreAllCounted(t *testing.T) {
	svc, st := newService(t, activeConfig(), nil)
	activate(t, svc, "A", "")
	refA := payloadOf(t, svc, "A")

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Activate(context.Background(), tournament.ActivationRequest{
				UserID:  fmt.Sprintf("cand-%02d", i),
				Payload: refA,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	a, err := st.GetParticipant(context.Background(), "A")
	require.NoError(t, err)
	assert.EqualValues(t, n, a.ReferralCount)
	assert.Len(t, a.ReferredSet, n)
}

func TestConcurrentFirstActivationCreatesOnce(t *testing.T) {
	st := store.NewMemory()
	reg := tournament.NewRegistry(st, []byte("k"))

	const n = 32
	var wg sync.WaitGroup
	got := make([]tournament.Participant, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := reg.GetOrCreate(context.Background(), "U")
			assert.NoError(t, err)
			got[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range got {
		assert.Equal(t, got[0].JoinedAt, p.JoinedAt)
		assert.Equal(t, got[0].ReferralToken, p.ReferralToken)
	}
	top, err := st.TopParticipants(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestRegistryRejectsEmptyIdentifier(t *testing.T) {
	reg := tournament.NewRegistry(store.NewMemory(), nil)
	_, err := reg.GetOrCreate(context.Background(), "  ")
	require.ErrorIs(t, err, tournament.ErrInvalidIdentifier)
}

func TestActivationOutsideWindowMutatesNothing(t *testing.T) {
	cfg := activeConfig()
	cfg.Start = time.Now().Add(time.Hour)
	cfg.End = time.Now().Add(2 * time.Hour)
	svc, st := newService(t, cfg, nil)

	out := activate(t, svc, "A", "")
	assert.Equal(t, tournament.StatusInactive, out.Status)
	assert.Nil(t, out.Participant)

	_, err := st.GetParticipant(context.Background(), "A")
	require.ErrorIs(t, err, tournament.ErrNotFound)

	cfg.Start = time.Now().Add(-2 * time.Hour)
	cfg.End = time.Now().Add(-time.Hour)
	svc, _ = newService(t, cfg, nil)
	assert.Equal(t, tournament.StatusInactive, activate(t, svc, "A", "").Status)
}

func TestIneligibleUserIsNotCredited(t *testing.T) {
	st := store.NewMemory()
	open := tournament.NewService(st, staticGate{ok: true}, activeConfig(), nil)
	closed := tournament.NewService(st, staticGate{ok: false}, activeConfig(), nil)
	failing := tournament.NewService(st, staticGate{err: errors.New("api down")}, activeConfig(), nil)

	activate(t, open, "A", "")
	refA := payloadOf(t, open, "A")

	out := activate(t, closed, "E", refA)
	assert.Equal(t, tournament.StatusIneligible, out.Status)
	assert.False(t, out.Referral.Applied)

	out = activate(t, failing, "F", refA)
	assert.Equal(t, tournament.StatusIneligible, out.Status)

	a, err := st.GetParticipant(context.Background(), "A")
	require.NoError(t, err)
	assert.EqualValues(t, 0, a.ReferralCount)

	// once eligible, the earlier attempt can still be credited
	assert.True(t, activate(t, open, "E", refA).Referral.Applied)
}

func TestMalformedOrUnknownPayloadIsIgnored(t *testing.T) {
	svc, _ := newService(t, activeConfig(), nil)
	activate(t, svc, "A", "")

	for _, payload := range []string{"ref_???", "hello", "ref_" + tournament.DeriveToken([]byte("elsewhere"), "A")} {
		out := activate(t, svc, "E", payload)
		assert.Equal(t, tournament.StatusActive, out.Status)
		assert.False(t, out.Referral.Applied)
		assert.Equal(t, tournament.SkipNoReferrer, out.Referral.Reason, payload)
	}
}

func TestAttributionPreconditions(t *testing.T) {
	st := store.NewMemory()
	reg := tournament.NewRegistry(st, nil)
	engine := tournament.NewAttributionEngine(st, nil)
	ctx := context.Background()
	for _, id := range []string{"A", "E"} {
		_, err := reg.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	cases := []struct {
		candidate, referrer, reason string
	}{
		{"E", "", tournament.SkipNoReferrer},
		{"E", "ghost", tournament.SkipUnknownReferrer},
		{"A", "A", tournament.SkipSelfReferral},
	}
	for _, tc := range cases {
		out, err := engine.Apply(ctx, tc.candidate, tc.referrer)
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Equal(t, tc.reason, out.Reason)
	}

	out, err := engine.Apply(ctx, "E", "A")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	out, err = engine.Apply(ctx, "E", "A")
	require.NoError(t, err)
	assert.Equal(t, tournament.SkipAlreadyReferred, out.Reason)
}

func TestRankTiesAreNotGapCorrected(t *testing.T) {
	svc, _ := newService(t, activeConfig(), nil)
	for _, id := range []string{"A", "B", "C"} {
		activate(t, svc, id, "")
	}
	refA, refB, refC := payloadOf(t, svc, "A"), payloadOf(t, svc, "B"), payloadOf(t, svc, "C")
	for i := 0; i < 3; i++ {
		activate(t, svc, fmt.Sprintf("a%d", i), refA)
		activate(t, svc, fmt.Sprintf("b%d", i), refB)
	}
	activate(t, svc, "c0", refC)

	assert.EqualValues(t, 1, rankOf(t, svc, "A"))
	assert.EqualValues(t, 1, rankOf(t, svc, "B"))
	// A and B share first place; C sits behind both of them
	assert.EqualValues(t, 3, rankOf(t, svc, "C"))
	assert.EqualValues(t, 4, rankOf(t, svc, "a0"))

	_, found, err := svc.Rank(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRankIsLive(t *testing.T) {
	svc, _ := newService(t, activeConfig(), nil)
	activate(t, svc, "A", "")
	activate(t, svc, "B", "")
	require.EqualValues(t, 1, rankOf(t, svc, "B"))

	activate(t, svc, "E", payloadOf(t, svc, "A"))
	assert.EqualValues(t, 2, rankOf(t, svc, "B"))
	assert.Empty(t, svc.Leaderboard().Entries)
}

func TestReferralInfo(t *testing.T) {
	svc, _ := newService(t, activeConfig(), nil)
	_, err := svc.ReferralInfo(context.Background(), "A")
	require.ErrorIs(t, err, tournament.ErrNotFound)

	activate(t, svc, "A", "")
	info, err := svc.ReferralInfo(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/start?p=ref_"+info.Participant.ReferralToken, info.Link)
	assert.True(t, info.RankKnown)
	assert.EqualValues(t, 1, info.Rank)
}

func TestActivationRecordsDisplayNameAndTime(t *testing.T) {
	svc, _ := newService(t, activeConfig(), nil)
	out, err := svc.Activate(context.Background(), tournament.ActivationRequest{UserID: "A", DisplayName: "alice"})
	require.NoError(t, err)
	require.NotNil(t, out.Participant)
	assert.Equal(t, "alice", out.Participant.DisplayName)
	require.NotNil(t, out.Participant.LastActivation)
	assert.WithinDuration(t, time.Now(), *out.Participant.LastActivation, time.Minute)
}

func TestStorageFailureIsUnavailable(t *testing.T) {
	flaky := &flakyStore{Store: store.NewMemory()}
	svc := tournament.NewService(flaky, nil, activeConfig(), nil)
	flaky.set(func(f *flakyStore) { f.failGet = true })

	_, err := svc.Activate(context.Background(), tournament.ActivationRequest{UserID: "A"})
	require.ErrorIs(t, err, tournament.ErrUnavailable)
	require.ErrorIs(t, err, errBackend)

	_, _, err = svc.Rank(context.Background(), "A")
	require.ErrorIs(t, err, tournament.ErrUnavailable)
}
