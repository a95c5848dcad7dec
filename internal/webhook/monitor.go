package webhook

import (
	"context"
	"time"

	"leadflow/internal/models"

	"github.com/rs/zerolog"
)

// Warning thresholds derived from the provider's own account suspension
// limits
const (
	bounceRateThreshold    = 0.04
	complaintRateThreshold = 0.0008
	monitorWindow          = 24 * time.Hour
)

// EventCounter is the slice of the event store the monitor needs
type EventCounter interface {
	EventCounts(ctx context.Context, eventType string, since time.Time) (int, int, error)
}

// Monitor watches trailing bounce and complaint rates and warns when the
// volume looks abnormal. Advisory only; no throttling is applied.
type Monitor struct {
	counter EventCounter
	logger  zerolog.Logger
}

// NewMonitor creates a monitor over the given event counter
func NewMonitor(counter EventCounter, logger zerolog.Logger) *Monitor {
	return &Monitor{counter: counter, logger: logger}
}

// CheckRate computes the trailing 24h rate for the event type and logs a
// warning when it crosses the threshold
func (m *Monitor) CheckRate(ctx context.Context, eventType string) {
	var threshold float64
	switch eventType {
	case models.EventBounced:
		threshold = bounceRateThreshold
	case models.EventComplained:
		threshold = complaintRateThreshold
	default:
		return
	}

	since := time.Now().Add(-monitorWindow)
	typed, total, err := m.counter.EventCounts(ctx, eventType, since)
	if err != nil {
		m.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to compute event rate")
		return
	}
	if total == 0 {
		return
	}

	rate := float64(typed) / float64(total)
	if rate > threshold {
		m.logger.Warn().
			Str("event_type", eventType).
			Float64("rate", rate).
			Float64("threshold", threshold).
			Int("events", typed).
			Int("total", total).
			Msg("Event rate above provider threshold")
	}
}
