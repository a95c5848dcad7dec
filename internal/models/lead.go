package models

import "time"

// Lead status values. A lead is disqualified when its mailbox hard-bounces.
const (
	LeadStatusNew          = "new"
	LeadStatusContacted    = "contacted"
	LeadStatusQualified    = "qualified"
	LeadStatusDisqualified = "disqualified"
)

// Unsubscribe reasons recorded when a lead opts out.
const (
	UnsubscribeReasonSpamComplaint = "spam_complaint"
	UnsubscribeReasonLink          = "unsubscribe_link"
	UnsubscribeReasonManual        = "manual"
)

// Lead represents a single CRM contact
type Lead struct {
	ID               int        `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Company          *string    `db:"company" json:"company,omitempty"`
	Source           *string    `db:"source" json:"source,omitempty"`
	Status           string     `db:"status" json:"status"`
	EngagementScore  int        `db:"engagement_score" json:"engagement_score"`
	LastEngagementAt *time.Time `db:"last_engagement_at" json:"last_engagement_at,omitempty"`
	EmailValid       bool       `db:"email_valid" json:"email_valid"`
	Unsubscribed     bool       `db:"unsubscribed" json:"unsubscribed"`
	UnsubscribedAt   *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	UnsubscribeReason *string   `db:"unsubscribe_reason" json:"unsubscribe_reason,omitempty"`
	UserID           string     `db:"user_id" json:"user_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// LeadGroup is a named collection of leads used as a campaign audience
type LeadGroup struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	UserID      string    `db:"user_id" json:"user_id"`
	LeadCount   int       `db:"lead_count" json:"lead_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GroupMembership joins leads to groups
type GroupMembership struct {
	ID        int       `db:"id" json:"id"`
	GroupID   int       `db:"group_id" json:"group_id"`
	LeadID    int       `db:"lead_id" json:"lead_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Form represents a lead capture form definition
type Form struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Fields    string    `db:"fields" json:"fields"` // JSON array of field definitions
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Unsubscribe is an append-only audit row recorded whenever a recipient opts out
type Unsubscribe struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
