package models

import (
	"time"

	"github.com/lib/pq"
)

// Email lifecycle statuses, aggregated from per-batch send outcomes
const (
	EmailStatusDraft         = "draft"
	EmailStatusSending       = "sending"
	EmailStatusSent          = "sent"
	EmailStatusPartiallySent = "partially_sent"
	EmailStatusFailed        = "failed"
)

// Delivery event types emitted by the provider webhook
const (
	EventSent            = "email.sent"
	EventDelivered       = "email.delivered"
	EventDeliveryDelayed = "email.delivery_delayed"
	EventFailed          = "email.failed"
	EventOpened          = "email.opened"
	EventClicked         = "email.clicked"
	EventBounced         = "email.bounced"
	EventComplained      = "email.complained"
	EventUnsubscribed    = "email.unsubscribed"
)

// Bounce classifications reported by the provider
const (
	BounceTypeHard = "hard"
	BounceTypeSoft = "soft"
)

// Email represents a persisted outbound email record. Status fields set by
// webhook events are additive refinements and never regress the lifecycle.
type Email struct {
	ID                int            `db:"id" json:"id"`
	Subject           string         `db:"subject" json:"subject"`
	Content           string         `db:"content" json:"content"`
	TemplateID        *int           `db:"template_id" json:"template_id,omitempty"`
	RecipientEmails   pq.StringArray `db:"recipient_emails" json:"recipient_emails"`
	LeadIDs           pq.Int64Array  `db:"lead_ids" json:"lead_ids,omitempty"`
	Status            string         `db:"status" json:"status"`
	SentAt            *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	ProviderMessageID *string        `db:"provider_message_id" json:"provider_message_id,omitempty"`
	Personalized      bool           `db:"personalized" json:"personalized"`
	DeliveredAt       *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	BouncedAt         *time.Time     `db:"bounced_at" json:"bounced_at,omitempty"`
	BounceType        *string        `db:"bounce_type" json:"bounce_type,omitempty"`
	ComplainedAt      *time.Time     `db:"complained_at" json:"complained_at,omitempty"`
	ComplaintType     *string        `db:"complaint_type" json:"complaint_type,omitempty"`
	FailedAt          *time.Time     `db:"failed_at" json:"failed_at,omitempty"`
	FailureReason     *string        `db:"failure_reason" json:"failure_reason,omitempty"`
	UserID            string         `db:"user_id" json:"user_id"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}

// EmailTemplate is a reusable subject/body pair
type EmailTemplate struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Subject   string    `db:"subject" json:"subject"`
	Content   string    `db:"content" json:"content"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EmailEvent is an append-only delivery event row. The
// (provider_id, event_type, occurred_at) triple is the dedup key.
type EmailEvent struct {
	ID         int       `db:"id" json:"id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	RawPayload *string   `db:"raw_payload" json:"raw_payload,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// WebhookReceipt records a processed webhook delivery by its transport-level
// event id, the authoritative idempotency layer across restarts.
type WebhookReceipt struct {
	ID          int       `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

// DailyMetric is a per-day rollup counter keyed by (date, event_type)
type DailyMetric struct {
	ID        int       `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	EventType string    `db:"event_type" json:"event_type"`
	Count     int       `db:"count" json:"count"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
