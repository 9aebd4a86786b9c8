package recs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recommendationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_recommendations_generated_total",
			Help: "Total number of recommendations returned, by algorithm",
		},
		[]string{"algorithm"},
	)

	strategyFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_strategy_fallbacks_total",
			Help: "Times a strategy had insufficient signal and degraded to popularity",
		},
		[]string{"strategy"},
	)

	generationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recsys_generation_failures_total",
			Help: "Internal strategy errors converted to empty result lists",
		},
	)

	recommendationScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recsys_recommendation_scores",
			Help:    "Distribution of recommendation scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	feedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_feedback_recorded_total",
			Help: "Recommendation feedback events by type",
		},
		[]string{"event"},
	)
)

func RecordGenerated(algorithm string, count int) {
	recommendationsGenerated.WithLabelValues(algorithm).Add(float64(count))
}

func RecordFallback(strategy string) {
	strategyFallbacks.WithLabelValues(strategy).Inc()
}

func RecordGenerationFailure() {
	generationFailures.Inc()
}

func RecordScore(score float64) {
	recommendationScores.Observe(score)
}

func RecordFeedback(event string) {
	feedbackRecorded.WithLabelValues(event).Inc()
}
