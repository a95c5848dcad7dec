package models

import (
	"encoding/json"
	"time"
)

// WebhookEnvelope is the JSON body the provider posts to /webhooks
type WebhookEnvelope struct {
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      WebhookData     `json:"data"`
	Raw       json.RawMessage `json:"-"`
}

// WebhookData carries the event-type-specific payload fields. Only the
// fields relevant to the event type are populated by the provider.
type WebhookData struct {
	EmailID string      `json:"email_id"`
	From    string      `json:"from,omitempty"`
	To      []string    `json:"to,omitempty"`
	Subject string      `json:"subject,omitempty"`
	Bounce  *BounceInfo `json:"bounce,omitempty"`
	Click   *ClickInfo  `json:"click,omitempty"`
	Failed  *FailedInfo `json:"failed,omitempty"`
}

// BounceInfo classifies a bounce event
type BounceInfo struct {
	Type    string `json:"type"` // hard or soft
	Message string `json:"message,omitempty"`
}

// ClickInfo carries the clicked link for click events
type ClickInfo struct {
	Link      string `json:"link"`
	UserAgent string `json:"user_agent,omitempty"`
}

// FailedInfo carries the failure reason for failed events
type FailedInfo struct {
	Reason string `json:"reason"`
}
