// Package metrics provides Prometheus metrics for the acquisition
// pipeline: jobs, segment downloads, and DRM license calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStartedTotal counts jobs dequeued for processing, by media type.
	JobsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "berriz_jobs_started_total",
		Help: "Total number of jobs dequeued for processing, by media type.",
	}, []string{"media_type"})

	// JobsCompletedTotal counts jobs reaching a terminal state, by media
	// type and outcome (done/failed/skipped).
	JobsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "berriz_jobs_completed_total",
		Help: "Total number of jobs reaching a terminal state, by media type and outcome.",
	}, []string{"media_type", "outcome"})

	// JobsInFlight tracks jobs currently being processed, by media type.
	JobsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "berriz_jobs_in_flight",
		Help: "Current number of jobs being processed, by media type.",
	}, []string{"media_type"})

	// SegmentDownloadsTotal counts individual segment fetch attempts, by
	// outcome (ok/retried/partial_accepted/failed).
	SegmentDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "berriz_segment_downloads_total",
		Help: "Total number of segment fetch attempts, by outcome.",
	}, []string{"outcome"})

	// SegmentBytesTotal sums bytes written by SegmentDownloader.
	SegmentBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "berriz_segment_bytes_total",
		Help: "Total bytes written by the segment downloader.",
	})

	// DRMLicenseRequestsTotal counts license requests, by backend and
	// outcome.
	DRMLicenseRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "berriz_drm_license_requests_total",
		Help: "Total number of DRM license requests, by backend and outcome.",
	}, []string{"backend", "outcome"})

	// KeyVaultHitsTotal counts PSSH lookups, by hit/miss.
	KeyVaultHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "berriz_keyvault_lookups_total",
		Help: "Total number of KeyVault lookups, by result.",
	}, []string{"result"})
)

// RecordJobStarted increments the started counter and in-flight gauge for
// a media type.
func RecordJobStarted(mediaType string) {
	JobsStartedTotal.WithLabelValues(mediaType).Inc()
	JobsInFlight.WithLabelValues(mediaType).Inc()
}

// RecordJobCompleted decrements the in-flight gauge and increments the
// completed counter for a media type/outcome pair.
func RecordJobCompleted(mediaType, outcome string) {
	JobsInFlight.WithLabelValues(mediaType).Dec()
	JobsCompletedTotal.WithLabelValues(mediaType, outcome).Inc()
}

// RecordSegmentDownload records one segment fetch outcome and its byte count.
func RecordSegmentDownload(outcome string, bytes int64) {
	SegmentDownloadsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		SegmentBytesTotal.Add(float64(bytes))
	}
}

// RecordDRMRequest records one license request outcome for a backend.
func RecordDRMRequest(backend, outcome string) {
	DRMLicenseRequestsTotal.WithLabelValues(backend, outcome).Inc()
}

// RecordKeyVaultLookup records a KeyVault lookup result ("hit" or "miss").
func RecordKeyVaultLookup(result string) {
	KeyVaultHitsTotal.WithLabelValues(result).Inc()
}
