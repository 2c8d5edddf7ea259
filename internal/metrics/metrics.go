// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecognitionCyclesTotal counts completed recognition cycles
	RecognitionCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faces_recognition_cycles_total",
		Help: "Total number of completed recognition cycles",
	})

	// RecognitionTicksDroppedTotal counts ticks dropped because a cycle was in flight
	RecognitionTicksDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faces_recognition_ticks_dropped_total",
		Help: "Total number of recognition ticks dropped while a cycle was in flight",
	})

	// RecognitionCycleDuration measures wall time of a recognition cycle
	RecognitionCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "faces_recognition_cycle_duration_seconds",
		Help:    "Duration of recognition cycles",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// FrameErrorsTotal counts frames the camera failed to deliver
	FrameErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faces_frame_errors_total",
		Help: "Total number of failed frame captures",
	})

	// DetectorFailuresTotal counts detector errors by caller
	DetectorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faces_detector_failures_total",
		Help: "Total number of detector failures",
	}, []string{"source"})

	// FacesMatchedTotal counts matched faces by outcome (known, unknown)
	FacesMatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faces_matched_total",
		Help: "Total number of faces matched against the gallery",
	}, []string{"outcome"})

	// EnrollmentsTotal counts enrollment attempts by result
	EnrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faces_enrollments_total",
		Help: "Total number of enrollment attempts",
	}, []string{"result"})

	// GalleryIdentities tracks the number of identities in the published matcher
	GalleryIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "faces_gallery_identities",
		Help: "Number of identities in the published gallery",
	})

	// SSEListeners tracks connected recognition event listeners
	SSEListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "faces_sse_listeners",
		Help: "Number of connected recognition event stream listeners",
	})

	// HTTPRequestDuration measures HTTP request handling time
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faces_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
