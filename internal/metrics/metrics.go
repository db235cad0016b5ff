// Package metrics exposes Prometheus instrumentation for the recognition
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline metrics. Construct with NewMetrics and a
// registerer; tests pass a throwaway registry.
type Metrics struct {
	ActiveSessions prometheus.Gauge

	ProcessCycles      prometheus.Counter
	ShortAudioSkips    prometheus.Counter
	EmptyBufferErrors  prometheus.Counter
	BufferOverflows    prometheus.Counter

	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	ClassificationRequests prometheus.Counter
	ClassificationFailures prometheus.Counter

	UploadsRejected *prometheus.CounterVec
	APIRequests     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicecoach_active_sessions",
			Help: "Current number of live streaming sessions",
		}),
		ProcessCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_process_cycles_total",
			Help: "Total number of processing cycles triggered",
		}),
		ShortAudioSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_short_audio_skips_total",
			Help: "Cycles short-circuited because the audio was below the minimum duration",
		}),
		EmptyBufferErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_empty_buffer_errors_total",
			Help: "Process triggers that arrived with an empty buffer",
		}),
		BufferOverflows: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_buffer_overflows_total",
			Help: "Audio chunks rejected by the session buffer cap",
		}),
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_transcription_requests_total",
			Help: "Total transcription backend calls",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_transcription_failures_total",
			Help: "Failed transcription backend calls",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicecoach_transcription_duration_seconds",
			Help:    "Latency of transcription backend calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ClassificationRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_classification_requests_total",
			Help: "Total classification backend calls",
		}),
		ClassificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicecoach_classification_failures_total",
			Help: "Classification calls that degraded to a nil action",
		}),
		UploadsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicecoach_uploads_rejected_total",
			Help: "Single-shot uploads rejected before any backend call",
		}, []string{"reason"}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicecoach_api_requests_total",
			Help: "Single-shot STT API requests by mode",
		}, []string{"mode"}),
	}
}
