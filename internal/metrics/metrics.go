// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Emitter event results.
const (
	ResultSkipped    = "skipped"
	ResultDispatched = "dispatched"
	ResultDelivered  = "delivered"
	ResultFailed     = "failed"
)

// Resolution results.
const (
	ResolutionResolved = "resolved"
	ResolutionAdopted  = "adopted"
	ResolutionFailed   = "failed"
)

var (
	TransportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cls_transport_requests_total",
		Help: "Total requests sent to the log service, by method and status code",
	}, []string{"method", "code"})

	TransportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cls_transport_request_duration_seconds",
		Help:    "Log service request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	EmitterEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cls_emitter_events_total",
		Help: "Log events seen by the emitter, by outcome",
	}, []string{"result"})

	EmitterResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cls_emitter_resolutions_total",
		Help: "Log set and topic id resolutions, by outcome",
	}, []string{"result"})

	PipelineEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cls_pipeline_entries_total",
		Help: "Entries read by the ship pipeline, by stage outcome",
	}, []string{"stage"})

	ProcessorDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cls_processor_drops_total",
		Help: "Entries dropped by a processor",
	}, []string{"processor"})
)
