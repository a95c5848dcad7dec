package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateTables creates the application schema if it does not exist yet
func CreateTables(db *sqlx.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			company VARCHAR(255),
			source VARCHAR(100),
			status VARCHAR(30) DEFAULT 'new',
			engagement_score INT DEFAULT 0,
			last_engagement_at TIMESTAMP,
			email_valid BOOLEAN DEFAULT TRUE,
			unsubscribed BOOLEAN DEFAULT FALSE,
			unsubscribed_at TIMESTAMP,
			unsubscribe_reason VARCHAR(100),
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, email)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_user_id ON leads(user_id)`,

		`CREATE TABLE IF NOT EXISTS lead_groups (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS group_memberships (
			id SERIAL PRIMARY KEY,
			group_id INT NOT NULL REFERENCES lead_groups(id) ON DELETE CASCADE,
			lead_id INT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(group_id, lead_id)
		)`,

		`CREATE TABLE IF NOT EXISTS forms (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			fields JSONB NOT NULL DEFAULT '[]',
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS email_templates (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS emails (
			id SERIAL PRIMARY KEY,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			template_id INT,
			recipient_emails TEXT[] NOT NULL,
			lead_ids BIGINT[],
			status VARCHAR(30) DEFAULT 'draft',
			sent_at TIMESTAMP,
			provider_message_id VARCHAR(255),
			personalized BOOLEAN DEFAULT FALSE,
			delivered_at TIMESTAMP,
			bounced_at TIMESTAMP,
			bounce_type VARCHAR(20),
			complained_at TIMESTAMP,
			complaint_type VARCHAR(50),
			failed_at TIMESTAMP,
			failure_reason TEXT,
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_provider_message_id ON emails(provider_message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_user_id ON emails(user_id)`,

		`CREATE TABLE IF NOT EXISTS email_events (
			id SERIAL PRIMARY KEY,
			provider_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			raw_payload JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider_id, event_type, occurred_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_events_provider_id ON email_events(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_email_events_created_at ON email_events(created_at)`,

		`CREATE TABLE IF NOT EXISTS email_metrics (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			count INT DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(date, event_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_metrics_date ON email_metrics(date)`,

		`CREATE TABLE IF NOT EXISTS webhook_events (
			id SERIAL PRIMARY KEY,
			event_id VARCHAR(255) UNIQUE NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS unsubscribes (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			reason VARCHAR(100) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}
