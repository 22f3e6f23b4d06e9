package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Leaderboard keeps the last published top-N snapshot in memory. Readers never
// trigger a recomputation; a background loop replaces the snapshot wholesale.
type Leaderboard struct {
	store  Store
	log    *slog.Logger
	size   int
	every  time.Duration
	follow bool
	now    func() time.Time

	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLeaderboard(store Store, cfg Config, logger *slog.Logger) *Leaderboard {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	l := &Leaderboard{
		store:  store,
		log:    logger,
		size:   cfg.LeaderboardSize,
		every:  cfg.RefreshEvery,
		follow: cfg.FollowSnapshots,
		now:    time.Now,
	}
	l.current.Store(&Snapshot{})
	return l
}

// Snapshot returns the last published snapshot, which may be empty.
func (l *Leaderboard) Snapshot() Snapshot {
	return *l.current.Load()
}

// Load primes the in-memory copy from the persisted snapshot, if any.
func (l *Leaderboard) Load(ctx context.Context) error {
	snap, err := l.store.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return unavailable("load snapshot", err)
	}
	if snap.Empty() {
		return nil
	}
	l.swap(snap)
	return nil
}

// Refresh runs one cycle. An empty source keeps the previous snapshot.
func (l *Leaderboard) Refresh(ctx context.Context) error {
	if l.follow {
		err := l.Load(ctx)
		l.record(err, "loaded")
		return err
	}

	entries, err := l.store.TopParticipants(ctx, l.size)
	if err != nil {
		err = unavailable("read top participants", err)
		l.record(err, "")
		return err
	}
	if len(entries) == 0 {
		snapshotRefreshes.WithLabelValues("retained").Inc()
		l.log.Info("leaderboard source empty, keeping previous snapshot")
		return nil
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	snap := Snapshot{
		ID:          uuid.NewString(),
		PublishedAt: l.now().UTC(),
		Entries:     entries,
	}
	if err := l.store.PublishSnapshot(ctx, snap); err != nil {
		err = unavailable("publish snapshot", err)
		l.record(err, "")
		return err
	}
	l.swap(snap)
	l.record(nil, "published")
	return nil
}

func (l *Leaderboard) swap(snap Snapshot) {
	l.current.Store(&snap)
	snapshotEntries.Set(float64(len(snap.Entries)))
}

func (l *Leaderboard) record(err error, result string) {
	if err != nil {
		result = "failed"
	}
	snapshotRefreshes.WithLabelValues(result).Inc()
}

// Start launches the refresh loop. It refreshes once immediately and then on
// every tick until Stop is called or ctx ends.
func (l *Leaderboard) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return fmt.Errorf("leaderboard refresher already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call more than once.
func (l *Leaderboard) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Leaderboard) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	l.cycle(ctx)
	ticker := time.NewTicker(l.every)
	defer ticker.Stop()

	l.log.Info("leaderboard refresher started", "every", l.every.String(), "size", l.size, "follow", l.follow)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("leaderboard refresher stopped")
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

func (l *Leaderboard) cycle(ctx context.Context) {
	if err := l.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Error("leaderboard refresh failed", "err", err)
	}
}
