package models

import (
	"time"
)

// CompliancePolicy is the global compliance configuration. A single row,
// lazily created with defaults on first access.
type CompliancePolicy struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`

	// Attempt ceilings per (contact, number) pair
	DailyAttemptLimit  int `json:"daily_attempt_limit" gorm:"default:3"`
	WeeklyAttemptLimit int `json:"weekly_attempt_limit" gorm:"default:7"`
	TotalAttemptLimit  int `json:"total_attempt_limit" gorm:"default:10"`

	// Calling-hours window in the contact's local time, HH:MM. An end
	// before the start means the window spans midnight.
	CallingHoursStart string `json:"calling_hours_start" gorm:"type:varchar(5);default:'08:00'"`
	CallingHoursEnd   string `json:"calling_hours_end" gorm:"type:varchar(5);default:'21:00'"`

	// DefaultTimezone is used when a contact's timezone is absent or invalid
	DefaultTimezone string `json:"default_timezone" gorm:"type:varchar(64);default:'America/New_York'"`

	// Enforcement flags per regime
	TCPAEnabled  bool `json:"tcpa_enabled" gorm:"default:true"`
	FDCPAEnabled bool `json:"fdcpa_enabled" gorm:"default:true"`
	DNCEnabled   bool `json:"dnc_enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CompliancePolicy model
func (CompliancePolicy) TableName() string {
	return "compliance_policies"
}

// UpdateCompliancePolicyRequest updates the global policy
type UpdateCompliancePolicyRequest struct {
	DailyAttemptLimit  int    `json:"daily_attempt_limit" binding:"required,min=0" example:"3"`
	WeeklyAttemptLimit int    `json:"weekly_attempt_limit" binding:"required,min=0" example:"7"`
	TotalAttemptLimit  int    `json:"total_attempt_limit" binding:"required,min=0" example:"10"`
	CallingHoursStart  string `json:"calling_hours_start" binding:"required" example:"08:00"`
	CallingHoursEnd    string `json:"calling_hours_end" binding:"required" example:"21:00"`
	DefaultTimezone    string `json:"default_timezone" binding:"required" example:"America/New_York"`
	TCPAEnabled        *bool  `json:"tcpa_enabled" binding:"required"`
	FDCPAEnabled       *bool  `json:"fdcpa_enabled" binding:"required"`
	DNCEnabled         *bool  `json:"dnc_enabled" binding:"required"`
}

// ComplianceViolation is an append-only audit row written on every block
type ComplianceViolation struct {
	ID          string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhoneNumber string        `json:"phone_number" gorm:"type:varchar(20);not null;index"`
	Type        ViolationType `json:"type" gorm:"type:varchar(10);not null;index"`
	Reason      string        `json:"reason" gorm:"type:text;not null"`

	CampaignID *string `json:"campaign_id,omitempty" gorm:"type:uuid;index"`
	ContactID  *string `json:"contact_id,omitempty" gorm:"type:uuid;index"`
	AgentID    *string `json:"agent_id,omitempty" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the ComplianceViolation model
func (ComplianceViolation) TableName() string {
	return "compliance_violations"
}
