package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the parcel service.
type Metrics struct {
	// Registry owns the collectors; /metrics serves it.
	Registry *prometheus.Registry

	events           *prometheus.CounterVec
	connections      prometheus.Gauge
	pipelineDuration *prometheus.HistogramVec
	assistantTotal   *prometheus.CounterVec
	transcriptTotal  *prometheus.CounterVec
}

// NewMetrics registers every collector in a private registry, so tests can
// build as many as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_channel_events_total",
				Help: "Channel events by name and direction.",
			},
			[]string{"event", "direction"},
		),
		connections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parcel_channel_connections",
				Help: "Open channel connections.",
			},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parcel_pipeline_duration_seconds",
				Help:    "Duration of geocode→route→price runs by outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		assistantTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_assistant_answers_total",
				Help: "Assistant answers by outcome.",
			},
			[]string{"outcome"},
		),
		transcriptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcel_transcript_writes_total",
				Help: "Transcript batch writes by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// The recording methods are no-ops on a nil *Metrics.

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, "in").Inc()
}

func (m *Metrics) EventSent(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, "out").Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) ObservePipeline(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveAssistant(outcome string) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTranscript(outcome string) {
	if m == nil {
		return
	}
	m.transcriptTotal.WithLabelValues(outcome).Inc()
}
