package database

import (
	"context"
	"fmt"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

// FormService handles lead capture form persistence
type FormService struct {
	db *sqlx.DB
}

// NewFormService creates a new form service
func NewFormService(db *sqlx.DB) (*FormService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for form service")
	}
	return &FormService{db: db}, nil
}

// CreateForm inserts a new form definition and returns its id
func (s *FormService) CreateForm(ctx context.Context, form *models.Form) (int, error) {
	if form.Fields == "" {
		form.Fields = "[]"
	}
	query := `
		INSERT INTO forms (name, fields, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int
	err := s.db.QueryRowxContext(ctx, query, form.Name, form.Fields, form.UserID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create form: %w", err)
	}
	return id, nil
}

// GetForm fetches a single form by id
func (s *FormService) GetForm(ctx context.Context, id int) (*models.Form, error) {
	var form models.Form
	if err := s.db.GetContext(ctx, &form, `SELECT * FROM forms WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get form %d: %w", id, err)
	}
	return &form, nil
}

// ListForms returns all forms for a user, newest first
func (s *FormService) ListForms(ctx context.Context, userID string) ([]models.Form, error) {
	forms := []models.Form{}
	query := `SELECT * FROM forms WHERE user_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &forms, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, nil
}
