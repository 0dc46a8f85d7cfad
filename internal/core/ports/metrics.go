package ports

import (
	"time"

	"roomhub/internal/core/domain"
)

// MetricsRecorder receives domain-level counters from the services. The
// Prometheus collector implements it in production; NopMetrics serves
// tests and deployments with monitoring turned off.
type MetricsRecorder interface {
	RecordRoomCreated()
	RecordRoomDeleted(room *domain.Room)
	RecordTransition(kind domain.ActivityKind)
	RecordPublish(payloadBytes int, duration time.Duration)
	RecordCASConflict()
	RecordShareAddressDecodeFailure()
}

type NopMetrics struct{}

func (NopMetrics) RecordRoomCreated()                   {}
func (NopMetrics) RecordRoomDeleted(*domain.Room)       {}
func (NopMetrics) RecordTransition(domain.ActivityKind) {}
func (NopMetrics) RecordPublish(int, time.Duration)     {}
func (NopMetrics) RecordCASConflict()                   {}
func (NopMetrics) RecordShareAddressDecodeFailure()     {}

