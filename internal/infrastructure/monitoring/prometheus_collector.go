package monitoring

import (
	"time"

	"roomhub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	roomsActiveTotal     prometheus.Gauge
	roomsSharedTotal     prometheus.Gauge
	roomsPublishedTotal  prometheus.Gauge
	publishesTotal       prometheus.Counter
	transitionsTotal     *prometheus.CounterVec
	casConflictsTotal    prometheus.Counter
	snapshotBytesWritten prometheus.Counter

	// Histograms
	httpRequestDuration    *prometheus.HistogramVec
	snapshotWriteDuration  prometheus.Histogram
	shareAddressDecodeFail prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		roomsActiveTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomhub_rooms_active_total",
			Help: "Total number of rooms in the directory",
		}),

		roomsSharedTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomhub_rooms_shared_total",
			Help: "Number of rooms currently in the shared state",
		}),

		roomsPublishedTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomhub_rooms_published_total",
			Help: "Number of rooms with a published snapshot",
		}),

		publishesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomhub_publishes_total",
			Help: "Total number of snapshot publishes",
		}),

		transitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roomhub_lifecycle_transitions_total",
			Help: "Room lifecycle transitions by kind",
		}, []string{"transition"}),

		casConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomhub_cas_conflicts_total",
			Help: "Optimistic update conflicts detected on room writes",
		}),

		snapshotBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomhub_snapshot_bytes_written_total",
			Help: "Total snapshot payload bytes written to durable storage",
		}),

		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),

		snapshotWriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomhub_snapshot_write_duration_seconds",
			Help:    "Duration of durable snapshot writes",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),

		shareAddressDecodeFail: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomhub_share_address_decode_failures_total",
			Help: "Share address resolve requests rejected as not share addresses",
		}),
	}
}

func (p *PrometheusCollector) RecordRoomCreated() {
	p.roomsActiveTotal.Inc()
}

func (p *PrometheusCollector) RecordRoomDeleted(room *domain.Room) {
	p.roomsActiveTotal.Dec()
	if room != nil {
		if room.Shared {
			p.roomsSharedTotal.Dec()
		}
		if room.Publish {
			p.roomsPublishedTotal.Dec()
		}
	}
}

func (p *PrometheusCollector) RecordTransition(kind domain.ActivityKind) {
	p.transitionsTotal.WithLabelValues(string(kind)).Inc()

	switch kind {
	case domain.ActivityShared:
		p.roomsSharedTotal.Inc()
	case domain.ActivityUnshared:
		p.roomsSharedTotal.Dec()
	case domain.ActivityPublished:
		p.roomsPublishedTotal.Inc()
	case domain.ActivityUnpublished:
		p.roomsPublishedTotal.Dec()
	}
}

func (p *PrometheusCollector) RecordPublish(payloadBytes int, duration time.Duration) {
	p.publishesTotal.Inc()
	p.snapshotBytesWritten.Add(float64(payloadBytes))
	p.snapshotWriteDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordCASConflict() {
	p.casConflictsTotal.Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	p.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordShareAddressDecodeFailure() {
	p.shareAddressDecodeFail.Inc()
}
