package webhook

import (
	"context"
	"fmt"

	"leadflow/internal/database"
	"leadflow/internal/metrics"
	"leadflow/internal/models"

	"github.com/rs/zerolog"
)

// Engagement score deltas per event type, applied per recipient and floored
// at zero by the lead store
var engagementDeltas = map[string]int{
	models.EventOpened:     1,
	models.EventClicked:    3,
	models.EventBounced:    -2,
	models.EventComplained: -5,
}

// Reconciler folds delivery events into the canonical email record, the
// append-only event log, lead engagement fields and the daily metrics.
// Every mutation is a sub-step returning a Result; one failing step never
// blocks the others.
type Reconciler struct {
	emails  *database.EmailService
	leads   *database.LeadService
	metrics *metrics.Service
	monitor *Monitor
	logger  zerolog.Logger
}

// NewReconciler creates a reconciler over the given stores
func NewReconciler(emails *database.EmailService, leads *database.LeadService, metricsService *metrics.Service, monitor *Monitor, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		emails:  emails,
		leads:   leads,
		metrics: metricsService,
		monitor: monitor,
		logger:  logger,
	}
}

// HandleSent records the provider's sent confirmation
func (rc *Reconciler) HandleSent(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results, _ := rc.appendAndCount(ctx, envelope)
	return results
}

// HandleDelivered stamps the delivery time and records the event
func (rc *Reconciler) HandleDelivered(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results := []Result{
		rc.step("mark_delivered", func() error {
			return rc.emails.MarkDelivered(ctx, envelope.Data.EmailID, envelope.CreatedAt)
		}),
	}
	more, _ := rc.appendAndCount(ctx, envelope)
	return append(results, more...)
}

// HandleFailed records a provider-side delivery failure
func (rc *Reconciler) HandleFailed(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	reason := "unknown"
	if envelope.Data.Failed != nil && envelope.Data.Failed.Reason != "" {
		reason = envelope.Data.Failed.Reason
	}
	results := []Result{
		rc.step("mark_failed", func() error {
			return rc.emails.MarkFailed(ctx, envelope.Data.EmailID, reason, envelope.CreatedAt)
		}),
	}
	more, _ := rc.appendAndCount(ctx, envelope)
	return append(results, more...)
}

// HandleOpened records an open and rewards engagement
func (rc *Reconciler) HandleOpened(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results, inserted := rc.appendAndCount(ctx, envelope)
	if inserted {
		results = append(results, rc.adjustEngagement(ctx, envelope)...)
	}
	return results
}

// HandleClicked records a click and rewards engagement
func (rc *Reconciler) HandleClicked(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results, inserted := rc.appendAndCount(ctx, envelope)
	if inserted {
		results = append(results, rc.adjustEngagement(ctx, envelope)...)
	}
	return results
}

// HandleBounced records the bounce, penalizes engagement, and for hard
// bounces invalidates the recipient mailbox and disqualifies the lead
func (rc *Reconciler) HandleBounced(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	bounceType := models.BounceTypeSoft
	if envelope.Data.Bounce != nil && envelope.Data.Bounce.Type != "" {
		bounceType = envelope.Data.Bounce.Type
	}

	results := []Result{
		rc.step("mark_bounced", func() error {
			return rc.emails.MarkBounced(ctx, envelope.Data.EmailID, bounceType, envelope.CreatedAt)
		}),
	}

	more, inserted := rc.appendAndCount(ctx, envelope)
	results = append(results, more...)

	if inserted {
		results = append(results, rc.adjustEngagement(ctx, envelope)...)
	}

	if bounceType == models.BounceTypeHard {
		for _, recipient := range envelope.Data.To {
			addr := recipient
			results = append(results, rc.step("invalidate_email", func() error {
				return rc.leads.InvalidateEmail(ctx, addr)
			}))
		}
	}

	rc.monitor.CheckRate(ctx, models.EventBounced)
	return results
}

// HandleComplained records the complaint, penalizes engagement and
// unsubscribes the recipient immediately
func (rc *Reconciler) HandleComplained(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results := []Result{
		rc.step("mark_complained", func() error {
			return rc.emails.MarkComplained(ctx, envelope.Data.EmailID, "abuse", envelope.CreatedAt)
		}),
	}

	more, inserted := rc.appendAndCount(ctx, envelope)
	results = append(results, more...)

	if inserted {
		results = append(results, rc.adjustEngagement(ctx, envelope)...)
	}

	for _, recipient := range envelope.Data.To {
		addr := recipient
		results = append(results, rc.step("unsubscribe", func() error {
			return rc.leads.Unsubscribe(ctx, addr, models.UnsubscribeReasonSpamComplaint)
		}))
	}

	rc.monitor.CheckRate(ctx, models.EventComplained)
	return results
}

// HandleUnsubscribed opts the recipient out with the link reason
func (rc *Reconciler) HandleUnsubscribed(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	results, _ := rc.appendAndCount(ctx, envelope)

	for _, recipient := range envelope.Data.To {
		addr := recipient
		results = append(results, rc.step("unsubscribe", func() error {
			return rc.leads.Unsubscribe(ctx, addr, models.UnsubscribeReasonLink)
		}))
	}

	return results
}

// appendAndCount appends the event row and, when the row is genuinely new,
// increments the daily metric. Duplicate rows are an idempotent no-op.
func (rc *Reconciler) appendAndCount(ctx context.Context, envelope models.WebhookEnvelope) ([]Result, bool) {
	inserted := false
	results := []Result{
		rc.step("append_event", func() error {
			var err error
			inserted, err = rc.emails.InsertEvent(ctx, envelope.Data.EmailID, envelope.Type, envelope.CreatedAt, envelope.Raw)
			return err
		}),
	}

	if inserted {
		results = append(results, rc.step("record_metric", func() error {
			return rc.metrics.RecordEvent(ctx, envelope.Type)
		}))
	}

	return results, inserted
}

// adjustEngagement applies the event's score delta to every recipient
func (rc *Reconciler) adjustEngagement(ctx context.Context, envelope models.WebhookEnvelope) []Result {
	delta, ok := engagementDeltas[envelope.Type]
	if !ok {
		return nil
	}

	results := make([]Result, 0, len(envelope.Data.To))
	for _, recipient := range envelope.Data.To {
		addr := recipient
		results = append(results, rc.step("adjust_engagement", func() error {
			return rc.leads.AdjustEngagement(ctx, addr, delta)
		}))
	}
	return results
}

// step wraps one mutating sub-step into a typed Result
func (rc *Reconciler) step(name string, fn func() error) Result {
	if err := fn(); err != nil {
		return Result{Step: name, Err: fmt.Errorf("%s: %w", name, err)}
	}
	return Result{Step: name}
}
