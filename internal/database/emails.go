package database

import (
	"context"
	"fmt"
	"time"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

// EmailService handles persistence of email records and delivery events
type EmailService struct {
	db *sqlx.DB
}

// NewEmailService creates a new email service
func NewEmailService(db *sqlx.DB) (*EmailService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for email service")
	}
	return &EmailService{db: db}, nil
}

// CreateEmail persists an email record with its aggregated dispatch status
// and returns the new record id
func (s *EmailService) CreateEmail(ctx context.Context, email *models.Email) (int, error) {
	query := `
		INSERT INTO emails (
			subject, content, template_id, recipient_emails, lead_ids,
			status, sent_at, provider_message_id, personalized, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int
	err := s.db.QueryRowxContext(ctx, query,
		email.Subject, email.Content, email.TemplateID,
		email.RecipientEmails, email.LeadIDs,
		email.Status, email.SentAt, email.ProviderMessageID,
		email.Personalized, email.UserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create email record: %w", err)
	}
	return id, nil
}

// ListEmails returns the most recent email records for a user
func (s *EmailService) ListEmails(ctx context.Context, userID string, limit int) ([]models.Email, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	emails := []models.Email{}
	query := `
		SELECT * FROM emails
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := s.db.SelectContext(ctx, &emails, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// MarkDelivered sets the delivery timestamp for the email matching the
// provider message id. Webhook-driven fields are additive refinements and
// never touch the dispatch status.
func (s *EmailService) MarkDelivered(ctx context.Context, providerID string, at time.Time) error {
	query := `UPDATE emails SET delivered_at = $1 WHERE provider_message_id = $2 AND delivered_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, at, providerID); err != nil {
		return fmt.Errorf("failed to mark email delivered: %w", err)
	}
	return nil
}

// MarkBounced records a bounce with its classification
func (s *EmailService) MarkBounced(ctx context.Context, providerID, bounceType string, at time.Time) error {
	query := `UPDATE emails SET bounced_at = $1, bounce_type = $2 WHERE provider_message_id = $3 AND bounced_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, at, bounceType, providerID); err != nil {
		return fmt.Errorf("failed to mark email bounced: %w", err)
	}
	return nil
}

// MarkComplained records a spam complaint
func (s *EmailService) MarkComplained(ctx context.Context, providerID, complaintType string, at time.Time) error {
	query := `UPDATE emails SET complained_at = $1, complaint_type = $2 WHERE provider_message_id = $3 AND complained_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, at, complaintType, providerID); err != nil {
		return fmt.Errorf("failed to mark email complained: %w", err)
	}
	return nil
}

// MarkFailed records a provider-side delivery failure
func (s *EmailService) MarkFailed(ctx context.Context, providerID, reason string, at time.Time) error {
	query := `UPDATE emails SET failed_at = $1, failure_reason = $2 WHERE provider_message_id = $3 AND failed_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, at, reason, providerID); err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}
	return nil
}

// InsertEvent appends a delivery event row. The insert is idempotent on the
// (provider_id, event_type, occurred_at) triple; it reports whether a new
// row was actually written.
func (s *EmailService) InsertEvent(ctx context.Context, providerID, eventType string, occurredAt time.Time, rawPayload []byte) (bool, error) {
	query := `
		INSERT INTO email_events (provider_id, event_type, occurred_at, raw_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id, event_type, occurred_at) DO NOTHING
	`
	var raw *string
	if len(rawPayload) > 0 {
		str := string(rawPayload)
		raw = &str
	}
	result, err := s.db.ExecContext(ctx, query, providerID, eventType, occurredAt, raw)
	if err != nil {
		return false, fmt.Errorf("failed to insert email event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return rows > 0, nil
}

// EventCounts returns how many events of the given type, and how many events
// in total, were recorded since the given time
func (s *EmailService) EventCounts(ctx context.Context, eventType string, since time.Time) (int, int, error) {
	var typed int
	query := `SELECT COUNT(*) FROM email_events WHERE event_type = $1 AND created_at >= $2`
	if err := s.db.GetContext(ctx, &typed, query, eventType, since); err != nil {
		return 0, 0, fmt.Errorf("failed to count %s events: %w", eventType, err)
	}

	var total int
	query = `SELECT COUNT(*) FROM email_events WHERE created_at >= $1`
	if err := s.db.GetContext(ctx, &total, query, since); err != nil {
		return 0, 0, fmt.Errorf("failed to count events: %w", err)
	}

	return typed, total, nil
}
