package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"leadflow/internal/models"

	"github.com/jmoiron/sqlx"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// importBatchSize caps how many rows go into one multi-row insert
const importBatchSize = 100

// headerFieldMap maps the CSV header spellings we have seen in the wild to
// stable lead fields
var headerFieldMap = map[string]string{
	"name":          "name",
	"full name":     "name",
	"fullname":      "name",
	"first name":    "name",
	"contact":       "name",
	"email":         "email",
	"e-mail":        "email",
	"email address": "email",
	"mail":          "email",
	"phone":         "phone",
	"phone number":  "phone",
	"mobile":        "phone",
	"tel":           "phone",
	"company":       "company",
	"organization":  "company",
	"organisation":  "company",
	"employer":      "company",
	"source":        "source",
	"lead source":   "source",
}

// LeadService handles lead persistence and engagement updates
type LeadService struct {
	db *sqlx.DB
}

// NewLeadService creates a new lead service
func NewLeadService(db *sqlx.DB) (*LeadService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for lead service")
	}
	return &LeadService{db: db}, nil
}

// ValidEmail reports whether the address has an RFC-plausible shape
func ValidEmail(address string) bool {
	return emailRegex.MatchString(address)
}

// CreateLead inserts a new lead and returns its id
func (s *LeadService) CreateLead(ctx context.Context, lead *models.Lead) (int, error) {
	if !ValidEmail(lead.Email) {
		return 0, fmt.Errorf("invalid email address: %s", lead.Email)
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	query := `
		INSERT INTO leads (name, email, phone, company, source, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, email) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`
	var id int
	err := s.db.QueryRowxContext(ctx, query,
		lead.Name, strings.ToLower(lead.Email), lead.Phone, lead.Company,
		lead.Source, lead.Status, lead.UserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create lead: %w", err)
	}
	return id, nil
}

// GetLead fetches a single lead by id
func (s *LeadService) GetLead(ctx context.Context, id int) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.GetContext(ctx, &lead, `SELECT * FROM leads WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get lead %d: %w", id, err)
	}
	return &lead, nil
}

// ListLeads returns a page of leads for a user, newest first
func (s *LeadService) ListLeads(ctx context.Context, userID string, limit, offset int) ([]models.Lead, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	leads := []models.Lead{}
	query := `SELECT * FROM leads WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &leads, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM leads WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	return leads, total, nil
}

// NamesByEmail resolves display names for a set of recipient addresses.
// Addresses without a matching lead are absent from the result.
func (s *LeadService) NamesByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	if len(emails) == 0 {
		return map[string]string{}, nil
	}
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	query, args, err := sqlx.In(`SELECT email, name FROM leads WHERE email IN (?)`, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to build name lookup: %w", err)
	}
	query = s.db.Rebind(query)

	rows := []struct {
		Email string `db:"email"`
		Name  string `db:"name"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to resolve lead names: %w", err)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Name != "" {
			names[row.Email] = row.Name
		}
	}
	return names, nil
}

// LeadIDsByEmail resolves lead ids for a set of recipient addresses
func (s *LeadService) LeadIDsByEmail(ctx context.Context, emails []string) ([]int64, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	query, args, err := sqlx.In(`SELECT id FROM leads WHERE email IN (?)`, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to build id lookup: %w", err)
	}
	query = s.db.Rebind(query)

	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to resolve lead ids: %w", err)
	}
	return ids, nil
}

// GroupRecipients returns the addresses of all subscribed leads in a group
func (s *LeadService) GroupRecipients(ctx context.Context, groupID int) ([]string, error) {
	emails := []string{}
	query := `
		SELECT l.email FROM leads l
		JOIN group_memberships gm ON gm.lead_id = l.id
		WHERE gm.group_id = $1 AND l.unsubscribed = FALSE AND l.email_valid = TRUE
	`
	if err := s.db.SelectContext(ctx, &emails, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to load group recipients: %w", err)
	}
	return emails, nil
}

// AdjustEngagement shifts a lead's engagement score by delta, floored at
// zero, and stamps the engagement time
func (s *LeadService) AdjustEngagement(ctx context.Context, email string, delta int) error {
	query := `
		UPDATE leads SET
			engagement_score = GREATEST(engagement_score + $1, 0),
			last_engagement_at = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE email = $3
	`
	if _, err := s.db.ExecContext(ctx, query, delta, time.Now().UTC(), strings.ToLower(email)); err != nil {
		return fmt.Errorf("failed to adjust engagement for %s: %w", email, err)
	}
	return nil
}

// InvalidateEmail marks a lead's mailbox as invalid after a hard bounce and
// disqualifies the lead
func (s *LeadService) InvalidateEmail(ctx context.Context, email string) error {
	query := `
		UPDATE leads SET
			email_valid = FALSE,
			status = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE email = $2
	`
	if _, err := s.db.ExecContext(ctx, query, models.LeadStatusDisqualified, strings.ToLower(email)); err != nil {
		return fmt.Errorf("failed to invalidate email %s: %w", email, err)
	}
	return nil
}

// Unsubscribe opts a recipient out and records the reason in the audit log
func (s *LeadService) Unsubscribe(ctx context.Context, email, reason string) error {
	now := time.Now().UTC()
	query := `
		UPDATE leads SET
			unsubscribed = TRUE,
			unsubscribed_at = $1,
			unsubscribe_reason = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE email = $3 AND unsubscribed = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, now, reason, strings.ToLower(email)); err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", email, err)
	}

	insert := `INSERT INTO unsubscribes (email, reason) VALUES ($1, $2)`
	if _, err := s.db.ExecContext(ctx, insert, strings.ToLower(email), reason); err != nil {
		return fmt.Errorf("failed to record unsubscribe for %s: %w", email, err)
	}
	return nil
}

// ImportResult summarizes a bulk lead import
type ImportResult struct {
	Imported int
	Merged   int
	Skipped  int
}

// ImportLeads maps raw CSV-style rows onto lead fields, merges duplicate
// rows by display name, and inserts the survivors in batches
func (s *LeadService) ImportLeads(ctx context.Context, rows []map[string]string, userID string) (*ImportResult, error) {
	result := &ImportResult{}
	byName := map[string]map[string]string{}
	order := []string{}

	for _, raw := range rows {
		mapped := mapImportRow(raw)
		if !ValidEmail(mapped["email"]) {
			result.Skipped++
			continue
		}
		if mapped["name"] == "" {
			mapped["name"] = mapped["email"]
		}

		key := strings.ToLower(mapped["name"])
		if existing, ok := byName[key]; ok {
			// Same display name seen before: fill in missing fields
			for field, value := range mapped {
				if existing[field] == "" && value != "" {
					existing[field] = value
				}
			}
			result.Merged++
			continue
		}
		byName[key] = mapped
		order = append(order, key)
	}

	for start := 0; start < len(order); start += importBatchSize {
		end := start + importBatchSize
		if end > len(order) {
			end = len(order)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, key := range order[start:end] {
			row := byName[key]
			batch = append(batch, map[string]interface{}{
				"name":    row["name"],
				"email":   strings.ToLower(row["email"]),
				"phone":   nullable(row["phone"]),
				"company": nullable(row["company"]),
				"source":  nullable(row["source"]),
				"status":  models.LeadStatusNew,
				"user_id": userID,
			})
		}

		query := `
			INSERT INTO leads (name, email, phone, company, source, status, user_id)
			VALUES (:name, :email, :phone, :company, :source, :status, :user_id)
			ON CONFLICT (user_id, email) DO NOTHING
		`
		if _, err := s.db.NamedExecContext(ctx, query, batch); err != nil {
			return result, fmt.Errorf("failed to insert lead batch: %w", err)
		}
		result.Imported += len(batch)
	}

	return result, nil
}

// mapImportRow translates arbitrary CSV headers to stable field names
func mapImportRow(raw map[string]string) map[string]string {
	mapped := map[string]string{}
	for header, value := range raw {
		field, ok := headerFieldMap[strings.ToLower(strings.TrimSpace(header))]
		if !ok {
			continue
		}
		if mapped[field] == "" {
			mapped[field] = strings.TrimSpace(value)
		}
	}
	return mapped
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
