package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ReceiptService persists webhook receipts, the authoritative idempotency
// layer behind the in-memory cache. It survives process restarts.
type ReceiptService struct {
	db *sqlx.DB
}

// NewReceiptService creates a new receipt service
func NewReceiptService(db *sqlx.DB) (*ReceiptService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for receipt service")
	}
	return &ReceiptService{db: db}, nil
}

// Seen reports whether a webhook delivery with this transport-level event id
// was already processed
func (s *ReceiptService) Seen(ctx context.Context, eventID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM webhook_events WHERE event_id = $1`
	if err := s.db.GetContext(ctx, &count, query, eventID); err != nil {
		return false, fmt.Errorf("failed to check webhook receipt: %w", err)
	}
	return count > 0, nil
}

// Record stores a receipt for a processed webhook delivery
func (s *ReceiptService) Record(ctx context.Context, eventID, eventType string) error {
	query := `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, eventID, eventType); err != nil {
		return fmt.Errorf("failed to record webhook receipt: %w", err)
	}
	return nil
}
