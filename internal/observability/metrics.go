package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveSubscriptions is the gauge of open live queries by stream.
	LiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "buddyfeed_live_subscriptions",
		Help: "Number of open live query subscriptions",
	}, []string{"stream"})

	// SnapshotsDelivered counts snapshots pushed to subscribers by stream.
	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buddyfeed_snapshots_total",
		Help: "Total number of live query snapshots delivered",
	}, []string{"stream"})

	// ProfileLookupFailures counts user lookups dropped while resolving likers.
	ProfileLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buddyfeed_profile_lookup_failures_total",
		Help: "Total number of failed profile lookups that were dropped",
	})

	// ImageUploads counts image uploads by strategy and result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buddyfeed_image_uploads_total",
		Help: "Total number of image uploads by strategy and result",
	}, []string{"strategy", "result"})
)
