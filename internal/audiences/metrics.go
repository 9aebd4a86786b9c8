package audiences

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	audienceBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_audience_builds_total",
			Help: "Total number of audience builds, by type",
		},
		[]string{"type"},
	)

	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "recsys_audience_build_seconds",
			Help: "Audience build duration",
		},
		[]string{"type"},
	)

	audienceSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recsys_audience_size",
			Help: "Size of the most recently built audience, by type",
		},
		[]string{"type"},
	)
)

func RecordBuild(audienceType string, duration time.Duration) {
	audienceBuilds.WithLabelValues(audienceType).Inc()
	buildDuration.WithLabelValues(audienceType).Observe(duration.Seconds())
}

func SetAudienceSize(audienceType string, size int) {
	audienceSize.WithLabelValues(audienceType).Set(float64(size))
}
