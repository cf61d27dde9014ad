package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "decisions_total",
		Help:      "Automatic decisions by outcome.",
	}, []string{"decision"})

	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "verdicts_total",
		Help:      "Human review verdicts by outcome.",
	}, []string{"decision"})

	escalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "escalations_total",
		Help:      "Records escalated to deep analysis by priority.",
	}, []string{"priority"})

	recordsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "records_failed_total",
		Help:      "Records moved to the failed status by stage event.",
	}, []string{"stage"})

	dispatchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "dispatch_attempts_total",
		Help:      "Outcome webhook delivery attempts.",
	})

	dispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "dispatch_failures_total",
		Help:      "Outcome deliveries abandoned after exhausting retries.",
	})

	reviewQueueGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Name:      "review_queue_size",
		Help:      "Records currently awaiting human review.",
	})

	reviewOverdueGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Name:      "review_overdue",
		Help:      "Review-queue records past the SLA deadline.",
	})

	queueDepthGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "guardian",
		Name:      "queue_depth",
		Help:      "Waiting messages per work queue, sampled by the autoscaler.",
	}, []string{"queue"})

	poolReplicasGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Name:      "analysis_replicas",
		Help:      "Deep-analysis worker replicas currently running.",
	})

	eventsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guardian",
		Name:      "audit_events_purged_total",
		Help:      "Audit log rows removed by TTL purges.",
	})
)
