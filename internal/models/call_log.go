package models

import (
	"time"
)

// CallLog is one dialable attempt: a unique (contact, phone number) pair
// within a campaign, created in bulk by the attempt expander
type CallLog struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CampaignID   string `json:"campaign_id" gorm:"not null;index;type:uuid;uniqueIndex:idx_call_logs_campaign_contact_number"`
	ContactID    string `json:"contact_id" gorm:"not null;index;type:uuid;uniqueIndex:idx_call_logs_campaign_contact_number"`
	PhoneNumber  string `json:"phone_number" gorm:"type:varchar(20);not null;index;uniqueIndex:idx_call_logs_campaign_contact_number"`
	CallerNumber string `json:"caller_number" gorm:"type:varchar(20);not null"` // assigned round-robin at expansion

	Status CallStatus `json:"status" gorm:"type:varchar(30);not null;default:'queued';index"`

	AttemptCount   int        `json:"attempt_count" gorm:"default:0"`
	LastAttemptAt  *time.Time `json:"last_attempt_at"`
	ProviderCallID string     `json:"provider_call_id,omitempty" gorm:"type:varchar(100);index"`
	Duration       int        `json:"duration" gorm:"default:0"` // seconds, from provider callback

	// Detail carries the blocking reason or the raw provider callback body
	Detail string `json:"detail,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Campaign Campaign `json:"-" gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
	Contact  Contact  `json:"contact,omitempty" gorm:"foreignKey:ContactID;references:ID"`
}

// TableName specifies the table name for the CallLog model
func (CallLog) TableName() string {
	return "call_logs"
}

// CallLogListOptions filters and pages a campaign's call log listing
type CallLogListOptions struct {
	Page     int
	PageSize int
	Search   string // matches phone_number
	Status   string
}

// CallLogResponse represents the response for call log listing
type CallLogResponse struct {
	ID             string     `json:"id"`
	CampaignID     string     `json:"campaign_id"`
	ContactID      string     `json:"contact_id"`
	ContactName    string     `json:"contact_name,omitempty"`
	PhoneNumber    string     `json:"phone_number"`
	CallerNumber   string     `json:"caller_number"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attempt_count"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	ProviderCallID string     `json:"provider_call_id,omitempty"`
	Duration       int        `json:"duration"`
	Detail         string     `json:"detail,omitempty"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
}

// ToResponse converts a CallLog to its response DTO
func (l *CallLog) ToResponse() *CallLogResponse {
	name := ""
	if l.Contact.ID != "" {
		name = l.Contact.FullName()
	}
	return &CallLogResponse{
		ID:             l.ID,
		CampaignID:     l.CampaignID,
		ContactID:      l.ContactID,
		ContactName:    name,
		PhoneNumber:    l.PhoneNumber,
		CallerNumber:   l.CallerNumber,
		Status:         string(l.Status),
		AttemptCount:   l.AttemptCount,
		LastAttemptAt:  l.LastAttemptAt,
		ProviderCallID: l.ProviderCallID,
		Duration:       l.Duration,
		Detail:         l.Detail,
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      l.UpdatedAt.Format(time.RFC3339),
	}
}
