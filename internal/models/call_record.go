package models

import (
	"time"
)

// CallRecord is the call detail record for one actual dial attempt.
// Created by the dialer worker the moment a call is attempted and updated
// append-only by the callback reconciler as provider events arrive.
type CallRecord struct {
	ID         string  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CampaignID string  `json:"campaign_id" gorm:"not null;index;type:uuid"`
	ContactID  string  `json:"contact_id" gorm:"not null;index;type:uuid"`
	AgentID    *string `json:"agent_id,omitempty" gorm:"type:uuid;index"`

	// ProviderCallID may be empty if the attempt failed before the provider
	// accepted it
	ProviderCallID string `json:"provider_call_id,omitempty" gorm:"type:varchar(100);index"`

	FromNumber string        `json:"from_number" gorm:"type:varchar(20);not null"`
	ToNumber   string        `json:"to_number" gorm:"type:varchar(20);not null"`
	Direction  CallDirection `json:"direction" gorm:"type:varchar(10);not null;default:'outbound'"`

	Status CallStatus `json:"status" gorm:"type:varchar(30);not null;default:'initiated';index"`

	// Duration, cost and recording are only meaningful once status reaches
	// completed
	DurationSeconds int     `json:"duration_seconds" gorm:"default:0"`
	RecordingURL    string  `json:"recording_url,omitempty" gorm:"type:text"`
	Cost            float64 `json:"cost" gorm:"type:decimal(10,5);default:0"`

	Detail     string `json:"detail,omitempty" gorm:"type:text"`
	RawPayload JSON   `json:"raw_payload,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Campaign Campaign `json:"-" gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
	Contact  Contact  `json:"-" gorm:"foreignKey:ContactID;references:ID"`
}

// TableName specifies the table name for the CallRecord model
func (CallRecord) TableName() string {
	return "call_records"
}
