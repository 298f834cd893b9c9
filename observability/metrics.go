package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "frames_processed_total",
		Help:      "Total number of mask frames run through the tracking engine",
	})

	FramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "frames_skipped_total",
		Help:      "Total number of malformed frames skipped (missing mask or out-of-order index)",
	})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "detections_total",
		Help:      "Total number of centroids detected across all frames",
	})

	TracksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "tracks_started_total",
		Help:      "Total number of tracks created from unmatched detections",
	})

	TracksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "tracks_completed_total",
		Help:      "Total number of tracks emitted to the completed set",
	})

	TracksPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "tracks_pruned_total",
		Help:      "Total number of active tracks discarded by the resource cap",
	})

	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "casa",
		Name:      "active_tracks",
		Help:      "Number of tracks currently in the active table",
	})

	AnalysesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "casa",
		Name:      "analyses_total",
		Help:      "Total number of motility analyses performed",
	})
)
