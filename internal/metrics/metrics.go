package metrics

import (
	"context"
	"fmt"
	"time"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

// Period constants for summary queries
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// Service maintains the per-day delivery event rollups
type Service struct {
	db *sqlx.DB
}

// NewService creates a new metrics service
func NewService(db *sqlx.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for metrics service")
	}
	return &Service{db: db}, nil
}

// RecordEvent increments today's counter for the given event type
func (s *Service) RecordEvent(ctx context.Context, eventType string) error {
	query := `
		INSERT INTO email_metrics (date, event_type, count, updated_at)
		VALUES (CURRENT_DATE, $1, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (date, event_type) DO UPDATE SET
			count = email_metrics.count + 1,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, eventType); err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", eventType, err)
	}
	return nil
}

// GetSummary aggregates the rollup counters over a named period
func (s *Service) GetSummary(ctx context.Context, period string) (*models.MetricsSummary, error) {
	start, end, err := periodRange(period)
	if err != nil {
		return nil, err
	}

	rows := []struct {
		EventType string `db:"event_type"`
		Total     int    `db:"total"`
	}{}
	query := `
		SELECT event_type, COALESCE(SUM(count), 0) AS total
		FROM email_metrics
		WHERE date >= $1 AND date <= $2
		GROUP BY event_type
	`
	if err := s.db.SelectContext(ctx, &rows, query, start.Format("2006-01-02"), end.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to query metrics summary: %w", err)
	}

	summary := &models.MetricsSummary{
		Period:    period,
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		Counts:    map[string]int{},
	}
	for _, row := range rows {
		summary.Counts[row.EventType] = row.Total
		summary.Total += row.Total
	}
	return summary, nil
}

// periodRange converts a period name to an inclusive date range
func periodRange(period string) (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	switch period {
	case PeriodToday:
		return today, today, nil
	case PeriodYesterday:
		yesterday := today.AddDate(0, 0, -1)
		return yesterday, yesterday, nil
	case PeriodLast7Days:
		return today.AddDate(0, 0, -6), today, nil
	case PeriodLast30Days:
		return today.AddDate(0, 0, -29), today, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period: %s", period)
	}
}
