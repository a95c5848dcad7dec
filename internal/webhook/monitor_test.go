package webhook

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"leadflow/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// stubCounter returns fixed event counts
type stubCounter struct {
	typed int
	total int
	err   error
}

func (s stubCounter) EventCounts(ctx context.Context, eventType string, since time.Time) (int, int, error) {
	return s.typed, s.total, s.err
}

func TestMonitor_CheckRate(t *testing.T) {
	tests := []struct {
		name       string
		eventType  string
		counter    stubCounter
		expectWarn bool
	}{
		{
			name:       "bounce rate above threshold",
			eventType:  models.EventBounced,
			counter:    stubCounter{typed: 10, total: 100},
			expectWarn: true,
		},
		{
			name:       "bounce rate below threshold",
			eventType:  models.EventBounced,
			counter:    stubCounter{typed: 2, total: 100},
			expectWarn: false,
		},
		{
			name:       "complaint rate above threshold",
			eventType:  models.EventComplained,
			counter:    stubCounter{typed: 1, total: 100},
			expectWarn: true,
		},
		{
			name:       "complaint rate below threshold",
			eventType:  models.EventComplained,
			counter:    stubCounter{typed: 1, total: 10000},
			expectWarn: false,
		},
		{
			name:       "no events at all",
			eventType:  models.EventBounced,
			counter:    stubCounter{},
			expectWarn: false,
		},
		{
			name:       "unmonitored event type",
			eventType:  models.EventOpened,
			counter:    stubCounter{typed: 100, total: 100},
			expectWarn: false,
		},
		{
			name:       "counter failure warns about the failure",
			eventType:  models.EventBounced,
			counter:    stubCounter{err: errors.New("db gone")},
			expectWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			monitor := NewMonitor(tt.counter, logger)
			monitor.CheckRate(context.Background(), tt.eventType)

			if tt.expectWarn {
				assert.Contains(t, buf.String(), `"level":"warn"`)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
