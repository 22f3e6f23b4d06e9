package tournament

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reftourney_activations_total",
		Help: "Activations handled, by outcome status",
	}, []string{"status"})

	referralsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reftourney_referrals_applied_total",
		Help: "Referrals credited to a referrer",
	})

	referralsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reftourney_referrals_skipped_total",
		Help: "Referral attempts skipped, by reason",
	}, []string{"reason"})

	snapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reftourney_snapshot_refreshes_total",
		Help: "Leaderboard refresh cycles, by result",
	}, []string{"result"})

	snapshotEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reftourney_snapshot_entries",
		Help: "Entries in the published leaderboard snapshot",
	})
)
