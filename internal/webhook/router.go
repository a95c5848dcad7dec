package webhook

import (
	"context"
	"fmt"

	"leadflow/internal/models"

	"github.com/rs/zerolog"
)

// Result is the typed outcome of one reconciler sub-step. Sub-step failures
// are logged by the router and never fail the webhook as a whole.
type Result struct {
	Step string
	Err  error
}

// Failed reports whether the sub-step returned an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// Router dispatches a verified, de-duplicated event to its type-specific
// reconciler handler
type Router struct {
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewRouter creates a router over the given reconciler
func NewRouter(reconciler *Reconciler, logger zerolog.Logger) *Router {
	return &Router{reconciler: reconciler, logger: logger}
}

// Route invokes the handler for the envelope's event type. Unknown types are
// logged and acknowledged so future provider events cannot break the
// endpoint. A returned error means the routing itself failed and the
// provider should retry the delivery.
func (r *Router) Route(ctx context.Context, envelope models.WebhookEnvelope) error {
	switch envelope.Type {
	case models.EventSent, models.EventDelivered, models.EventFailed,
		models.EventOpened, models.EventClicked, models.EventBounced,
		models.EventComplained, models.EventUnsubscribed:
		if envelope.Data.EmailID == "" {
			return fmt.Errorf("webhook event %s carries no email id", envelope.Type)
		}
	}

	var results []Result

	switch envelope.Type {
	case models.EventSent:
		results = r.reconciler.HandleSent(ctx, envelope)
	case models.EventDelivered:
		results = r.reconciler.HandleDelivered(ctx, envelope)
	case models.EventDeliveryDelayed:
		// Placeholder until delayed deliveries get their own handling
		r.logger.Debug().Str("provider_id", envelope.Data.EmailID).Msg("Delivery delayed")
	case models.EventFailed:
		results = r.reconciler.HandleFailed(ctx, envelope)
	case models.EventOpened:
		results = r.reconciler.HandleOpened(ctx, envelope)
	case models.EventClicked:
		results = r.reconciler.HandleClicked(ctx, envelope)
	case models.EventBounced:
		results = r.reconciler.HandleBounced(ctx, envelope)
	case models.EventComplained:
		results = r.reconciler.HandleComplained(ctx, envelope)
	case models.EventUnsubscribed:
		results = r.reconciler.HandleUnsubscribed(ctx, envelope)
	default:
		r.logger.Warn().Str("event_type", envelope.Type).Msg("Unknown webhook event type, acknowledging")
		return nil
	}

	for _, result := range results {
		if result.Failed() {
			r.logger.Error().Err(result.Err).
				Str("event_type", envelope.Type).
				Str("step", result.Step).
				Msg("Reconciler step failed")
		}
	}

	return nil
}
