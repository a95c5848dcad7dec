package database

import (
	"context"
	"fmt"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

// TemplateService handles email template persistence
type TemplateService struct {
	db *sqlx.DB
}

// NewTemplateService creates a new template service
func NewTemplateService(db *sqlx.DB) (*TemplateService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for template service")
	}
	return &TemplateService{db: db}, nil
}

// CreateTemplate inserts a new template and returns its id
func (s *TemplateService) CreateTemplate(ctx context.Context, template *models.EmailTemplate) (int, error) {
	query := `
		INSERT INTO email_templates (name, subject, content, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int
	err := s.db.QueryRowxContext(ctx, query,
		template.Name, template.Subject, template.Content, template.UserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create template: %w", err)
	}
	return id, nil
}

// GetTemplate fetches a single template by id
func (s *TemplateService) GetTemplate(ctx context.Context, id int) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	if err := s.db.GetContext(ctx, &template, `SELECT * FROM email_templates WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", id, err)
	}
	return &template, nil
}

// ListTemplates returns all templates for a user, newest first
func (s *TemplateService) ListTemplates(ctx context.Context, userID string) ([]models.EmailTemplate, error) {
	templates := []models.EmailTemplate{}
	query := `SELECT * FROM email_templates WHERE user_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &templates, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
