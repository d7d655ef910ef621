package models

import (
	"time"
)

// ProviderSettings holds the telephony provider credentials. A single row;
// changing it invalidates the cached provider client.
type ProviderSettings struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	AccountSID string `json:"account_sid" gorm:"type:varchar(100);not null"`
	AuthToken  string `json:"-" gorm:"type:varchar(100);not null"`

	// BaseCallbackURL is the public base URL the provider posts status and
	// IVR callbacks to, e.g. https://dialer.example.com
	BaseCallbackURL string `json:"base_callback_url" gorm:"type:varchar(255);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ProviderSettings model
func (ProviderSettings) TableName() string {
	return "provider_settings"
}

// UpdateProviderSettingsRequest replaces the provider credentials
type UpdateProviderSettingsRequest struct {
	AccountSID      string `json:"account_sid" binding:"required" example:"ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"`
	AuthToken       string `json:"auth_token" binding:"required"`
	BaseCallbackURL string `json:"base_callback_url" binding:"required,url" example:"https://dialer.example.com"`
}

// CacheKey identifies the credential set a cached provider client was built
// from
func (s *ProviderSettings) CacheKey() string {
	return s.AccountSID + ":" + s.AuthToken + ":" + s.BaseCallbackURL
}
