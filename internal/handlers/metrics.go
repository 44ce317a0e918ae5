package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genturix_events_ingested_total",
		Help: "Security events accepted through the webhook.",
	})

	pushesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genturix_pushes_sent_total",
		Help: "Push deliveries attempted, by result.",
	}, []string{"result"})

	pushesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genturix_push_subscriptions_pruned_total",
		Help: "Subscriptions removed after the push service reported them gone.",
	})
)
