package pushsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pushsync_reconcile_cycles_total",
		Help: "Completed reconcile cycles by classified case.",
	}, []string{"case"})

	reconcileDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pushsync_reconcile_dropped_total",
		Help: "Reconcile requests dropped because a cycle was already in flight.",
	})

	reconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pushsync_reconcile_failures_total",
		Help: "Reconcile cycles whose corrective action failed and was deferred.",
	})

	subscribeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pushsync_subscribe_failures_total",
		Help: "Subscribe attempts aborted, by failing step.",
	}, []string{"step"})
)
