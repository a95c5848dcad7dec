package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"leadflow/internal/cache"
	"leadflow/internal/database"
	"leadflow/internal/models"
	"leadflow/internal/webhook"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WebhookHandler processes provider delivery-event webhooks. The request
// walks rate-limit -> signature verification -> duplicate check -> routing
// -> receipt; duplicates are acknowledged without reprocessing.
func WebhookHandler(verifier *webhook.Verifier, limiter *webhook.RateLimiter, dedupe *cache.Cache, receipts *database.ReceiptService, router *webhook.Router, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if verifier == nil {
			return c.JSON(http.StatusServiceUnavailable, models.WebhookResponse{
				Success: false,
				Message: "Webhook processing disabled",
				Error:   "signing secret not configured",
			})
		}

		if !limiter.Allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, models.WebhookResponse{
				Success: false,
				Message: "Rate limit exceeded",
			})
		}

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.WebhookResponse{
				Success: false,
				Message: "Unreadable request body",
			})
		}

		eventID, err := verifier.Verify(body, c.Request().Header)
		if err != nil {
			if errors.Is(err, webhook.ErrMissingHeaders) {
				return c.JSON(http.StatusBadRequest, models.WebhookResponse{
					Success: false,
					Message: "Missing webhook headers",
				})
			}
			logger.Warn().Err(err).Str("remote_ip", c.RealIP()).Msg("Webhook signature verification failed")
			return c.JSON(http.StatusUnauthorized, models.WebhookResponse{
				Success: false,
				Message: "Invalid signature",
			})
		}

		ctx := c.Request().Context()

		// Fast path: the in-memory cache covers recent deliveries
		if dedupe.Has(eventID) {
			return c.JSON(http.StatusOK, models.WebhookResponse{
				Success: true,
				Message: "Event already processed",
			})
		}

		// Authoritative check against the persisted receipt log
		seen, err := receipts.Seen(ctx, eventID)
		if err != nil {
			logger.Warn().Err(err).Str("event_id", eventID).Msg("Receipt lookup failed, treating event as new")
		} else if seen {
			dedupe.Set(eventID, true)
			return c.JSON(http.StatusOK, models.WebhookResponse{
				Success: true,
				Message: "Event already processed",
			})
		}

		var envelope models.WebhookEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return c.JSON(http.StatusBadRequest, models.WebhookResponse{
				Success: false,
				Message: "Malformed event payload",
			})
		}
		envelope.Raw = body

		// A routing failure asks the provider to retry; the idempotency
		// gate keeps the retry from double-applying completed side effects.
		if err := router.Route(ctx, envelope); err != nil {
			logger.Error().Err(err).Str("event_id", eventID).Str("event_type", envelope.Type).Msg("Webhook routing failed")
			return c.JSON(http.StatusInternalServerError, models.WebhookResponse{
				Success: false,
				Message: "Event processing failed",
				Error:   err.Error(),
			})
		}

		dedupe.Set(eventID, true)
		if err := receipts.Record(ctx, eventID, envelope.Type); err != nil {
			// Tolerated: the cache still guards this process; only a restart
			// would risk reprocessing.
			logger.Warn().Err(err).Str("event_id", eventID).Msg("Failed to persist webhook receipt")
		}

		return c.JSON(http.StatusOK, models.WebhookResponse{
			Success:   true,
			Message:   "Webhook processed",
			EventType: envelope.Type,
		})
	}
}
