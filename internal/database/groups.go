package database

import (
	"context"
	"fmt"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

// GroupService handles lead group persistence
type GroupService struct {
	db *sqlx.DB
}

// NewGroupService creates a new group service
func NewGroupService(db *sqlx.DB) (*GroupService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for group service")
	}
	return &GroupService{db: db}, nil
}

// CreateGroup inserts a new lead group and returns its id
func (s *GroupService) CreateGroup(ctx context.Context, group *models.LeadGroup) (int, error) {
	query := `
		INSERT INTO lead_groups (name, description, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int
	err := s.db.QueryRowxContext(ctx, query, group.Name, group.Description, group.UserID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create group: %w", err)
	}
	return id, nil
}

// ListGroups returns all groups for a user with their member counts
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]models.LeadGroup, error) {
	groups := []models.LeadGroup{}
	query := `
		SELECT g.id, g.name, g.description, g.user_id, g.created_at,
			COUNT(gm.id) AS lead_count
		FROM lead_groups g
		LEFT JOIN group_memberships gm ON gm.group_id = g.id
		WHERE g.user_id = $1
		GROUP BY g.id
		ORDER BY g.created_at DESC
	`
	if err := s.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// AddLead adds a lead to a group; re-adding is a no-op
func (s *GroupService) AddLead(ctx context.Context, groupID, leadID int) error {
	query := `
		INSERT INTO group_memberships (group_id, lead_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, lead_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, leadID); err != nil {
		return fmt.Errorf("failed to add lead %d to group %d: %w", leadID, groupID, err)
	}
	return nil
}

// RemoveLead removes a lead from a group
func (s *GroupService) RemoveLead(ctx context.Context, groupID, leadID int) error {
	query := `DELETE FROM group_memberships WHERE group_id = $1 AND lead_id = $2`
	if _, err := s.db.ExecContext(ctx, query, groupID, leadID); err != nil {
		return fmt.Errorf("failed to remove lead %d from group %d: %w", leadID, groupID, err)
	}
	return nil
}
