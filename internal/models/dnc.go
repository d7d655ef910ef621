package models

import (
	"time"
)

// Known DNC entry sources
const (
	DNCSourceManual    = "manual"
	DNCSourceIVROptOut = "ivr_optout"
	DNCSourceImport    = "import"
)

// DNCEntry is one number in the do-not-call registry. Numbers are stored in
// a single canonical form (the normalizer output), so membership checks
// never need suffix matching.
type DNCEntry struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PhoneNumber string `json:"phone_number" gorm:"type:varchar(20);not null;unique;index"`
	Source      string `json:"source" gorm:"type:varchar(50);default:'manual'"` // manual, ivr_optout, import

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the DNCEntry model
func (DNCEntry) TableName() string {
	return "dnc_entries"
}

// AddDNCRequest adds a number to the registry
type AddDNCRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required" example:"+15551234567"`
	Source      string `json:"source" example:"manual"`
}
