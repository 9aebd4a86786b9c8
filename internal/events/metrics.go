package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactionsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_interactions_tracked_total",
			Help: "Total number of tracked user-product interactions",
		},
		[]string{"type"},
	)

	preferenceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_preference_updates_total",
			Help: "Total number of preference nudges",
		},
		[]string{"dimension"},
	)
)

func RecordInteraction(interactionType string) {
	interactionsTracked.WithLabelValues(interactionType).Inc()
}

func RecordPreferenceUpdate(dimension string) {
	preferenceUpdates.WithLabelValues(dimension).Inc()
}
