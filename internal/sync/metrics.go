package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonesync_reconcile_cycles_total",
		Help: "Reconciliation cycles run, by result.",
	}, []string{"result"})

	changesAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonesync_changes_applied_total",
		Help: "Provider changes attempted, by operation and result.",
	}, []string{"op", "result"})

	ownershipConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonesync_ownership_conflicts_total",
		Help: "Desired hostnames skipped because foreign records occupy them.",
	})

	consecutiveFailuresGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonesync_consecutive_failures",
		Help: "Consecutive failed reconciliation cycles.",
	})

	lastSuccessGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonesync_last_successful_cycle_timestamp_seconds",
		Help: "Unix time of the last fully successful reconciliation cycle.",
	})
)

func init() {
	ctrlmetrics.Registry.MustRegister(
		cyclesTotal,
		changesAppliedTotal,
		ownershipConflictsTotal,
		consecutiveFailuresGauge,
		lastSuccessGauge,
	)
}

func recordApplied(op Op, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	changesAppliedTotal.WithLabelValues(string(op), result).Inc()
}
