package models

import (
	"time"
)

// Campaign represents an outbound dialing campaign
type Campaign struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name           string     `json:"name" gorm:"type:varchar(255);not null;unique;index"`
	ContactGroupID string     `json:"contact_group_id" gorm:"not null;index;type:uuid"`
	AgentID        *string    `json:"agent_id" gorm:"type:uuid;index"` // nil = auto-assign

	// CallerNumbers is the ordered caller-id rotation list. Attempts are
	// assigned a caller number round-robin at expansion time.
	CallerNumbers StringList `json:"caller_numbers" gorm:"type:jsonb;not null"`

	// Pacing
	CallsPerMinute int `json:"calls_per_minute" gorm:"not null;default:10"` // bounded 1-60

	// Counters. Monotonically non-decreasing; mutated only via atomic
	// increment-by-delta updates (worker and reconciler race on these).
	TotalContacts     int `json:"total_contacts" gorm:"default:0"`
	ContactsQueued    int `json:"contacts_queued" gorm:"default:0"`
	ContactsCalled    int `json:"contacts_called" gorm:"default:0"`
	ContactsAnswered  int `json:"contacts_answered" gorm:"default:0"`
	ContactsCompleted int `json:"contacts_completed" gorm:"default:0"`

	Status       CampaignStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Campaign model
func (Campaign) TableName() string {
	return "campaigns"
}

// CounterDelta carries atomic counter increments for a campaign
type CounterDelta struct {
	Called    int
	Answered  int
	Completed int
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name           string   `json:"name" binding:"required" example:"Q3 renewal outreach"`
	ContactGroupID string   `json:"contact_group_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	CallerNumbers  []string `json:"caller_numbers" binding:"required,min=1" example:"+15551230001,+15551230002"`
	AgentID        *string  `json:"agent_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440001"`
	CallsPerMinute int      `json:"calls_per_minute" binding:"required,min=1,max=60" example:"10"`
}

// UpdateCampaignStatusRequest starts or pauses a campaign's worker
type UpdateCampaignStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=running paused" example:"running"`
}

// CampaignResponse represents the response for campaign operations
type CampaignResponse struct {
	ID                string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name              string     `json:"name" example:"Q3 renewal outreach"`
	ContactGroupID    string     `json:"contact_group_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	AgentID           *string    `json:"agent_id,omitempty"`
	CallerNumbers     []string   `json:"caller_numbers" example:"+15551230001"`
	CallsPerMinute    int        `json:"calls_per_minute" example:"10"`
	TotalContacts     int        `json:"total_contacts" example:"1200"`
	ContactsQueued    int        `json:"contacts_queued" example:"1180"`
	ContactsCalled    int        `json:"contacts_called" example:"240"`
	ContactsAnswered  int        `json:"contacts_answered" example:"96"`
	ContactsCompleted int        `json:"contacts_completed" example:"230"`
	Status            string     `json:"status" example:"running"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	CreatedAt         string     `json:"created_at" example:"2025-01-09T10:30:00Z"`
	UpdatedAt         string     `json:"updated_at" example:"2025-01-09T10:30:00Z"`
}

// ToResponse converts a Campaign to its response DTO
func (c *Campaign) ToResponse() *CampaignResponse {
	return &CampaignResponse{
		ID:                c.ID,
		Name:              c.Name,
		ContactGroupID:    c.ContactGroupID,
		AgentID:           c.AgentID,
		CallerNumbers:     c.CallerNumbers,
		CallsPerMinute:    c.CallsPerMinute,
		TotalContacts:     c.TotalContacts,
		ContactsQueued:    c.ContactsQueued,
		ContactsCalled:    c.ContactsCalled,
		ContactsAnswered:  c.ContactsAnswered,
		ContactsCompleted: c.ContactsCompleted,
		Status:            string(c.Status),
		ErrorMessage:      c.ErrorMessage,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         c.UpdatedAt.Format(time.RFC3339),
	}
}
