package models

import "time"

// HealthResponse represents a basic health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// DBHealthResponse represents a database health check response
type DBHealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// SendEmailRequest is the request body for the email dispatch endpoint
type SendEmailRequest struct {
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	TemplateID   *int     `json:"template_id,omitempty"`
	Recipients   []string `json:"recipients,omitempty"`
	GroupID      *int     `json:"group_id,omitempty"`
	Personalized bool     `json:"personalized"`
	ReplyTo      string   `json:"reply_to,omitempty"`
	UserID       string   `json:"user_id"`
}

// SendEmailResponse reports the aggregated outcome of a dispatch request
type SendEmailResponse struct {
	Success         bool   `json:"success"`
	EmailID         int    `json:"email_id,omitempty"`
	Status          string `json:"status,omitempty"`
	SuccessfulSends int    `json:"successful_sends"`
	FailedSends     int    `json:"failed_sends"`
	Warning         string `json:"warning,omitempty"`
	Error           string `json:"error,omitempty"`
}

// WebhookResponse acknowledges an inbound provider webhook
type WebhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	EventType string `json:"eventType,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LeadResponse wraps a single lead
type LeadResponse struct {
	Success bool   `json:"success"`
	Lead    *Lead  `json:"lead,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LeadListResponse wraps a page of leads
type LeadListResponse struct {
	Success bool   `json:"success"`
	Leads   []Lead `json:"leads"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// ImportLeadsRequest carries raw CSV-style rows keyed by their original headers
type ImportLeadsRequest struct {
	Rows   []map[string]string `json:"rows"`
	UserID string              `json:"user_id"`
}

// ImportLeadsResponse reports how many rows were imported, merged or skipped
type ImportLeadsResponse struct {
	Success  bool   `json:"success"`
	Imported int    `json:"imported"`
	Merged   int    `json:"merged"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// MetricsSummary aggregates daily counters over a period
type MetricsSummary struct {
	Period    string         `json:"period"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
}

// MetricsResponse wraps a metrics summary
type MetricsResponse struct {
	Success bool            `json:"success"`
	Summary *MetricsSummary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GroupResponse wraps a single lead group
type GroupResponse struct {
	Success bool       `json:"success"`
	Group   *LeadGroup `json:"group,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// GroupListResponse wraps all groups for a user
type GroupListResponse struct {
	Success bool        `json:"success"`
	Groups  []LeadGroup `json:"groups"`
	Error   string      `json:"error,omitempty"`
}

// TemplateResponse wraps a single email template
type TemplateResponse struct {
	Success  bool           `json:"success"`
	Template *EmailTemplate `json:"template,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// TemplateListResponse wraps all templates for a user
type TemplateListResponse struct {
	Success   bool            `json:"success"`
	Templates []EmailTemplate `json:"templates"`
	Error     string          `json:"error,omitempty"`
}

// FormResponse wraps a single lead capture form
type FormResponse struct {
	Success bool   `json:"success"`
	Form    *Form  `json:"form,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FormListResponse wraps all forms for a user
type FormListResponse struct {
	Success bool   `json:"success"`
	Forms   []Form `json:"forms"`
	Error   string `json:"error,omitempty"`
}

// EmailListResponse wraps a page of sent emails
type EmailListResponse struct {
	Success bool    `json:"success"`
	Emails  []Email `json:"emails"`
	Error   string  `json:"error,omitempty"`
}
