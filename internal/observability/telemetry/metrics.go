package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Roaming operation counters
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oicp_requests_total",
		Help: "Roaming requests by operation and outcome",
	}, []string{"operation", "outcome"})

	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oicp_responses_total",
		Help: "Roaming responses by operation and outcome",
	}, []string{"operation", "outcome"})

	HubCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oicp_hub_call_duration_seconds",
		Help:    "Latency of outbound hub calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Synchronization counters
	SyncCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oicp_sync_cycles_total",
		Help: "Pull cycles by kind and outcome",
	}, []string{"kind", "outcome"})

	SyncSkippedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oicp_sync_skipped_ticks_total",
		Help: "Timer ticks dropped because a cycle was still running",
	}, []string{"kind"})

	ReconciledRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oicp_reconciled_records_total",
		Help: "Reconciled remote records by entity level and action",
	}, []string{"level", "action"})

	EVSEStatusChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oicp_evse_status_changes_total",
		Help: "EVSE status transitions applied to the entity graph",
	})
)
