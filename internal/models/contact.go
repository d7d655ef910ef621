package models

import (
	"strings"
	"time"
)

// Contact is a dialable person inside a contact group. Contact CRUD and CSV
// import live outside this service; the dialer core only reads these rows.
type Contact struct {
	ID      string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	GroupID string `json:"group_id" gorm:"not null;index;type:uuid"`

	FirstName string `json:"first_name" gorm:"type:varchar(255)"`
	LastName  string `json:"last_name" gorm:"type:varchar(255)"`

	// Phone is the primary number and must normalize at import time.
	// Phone2/Phone3 are optional; numbers that fail to normalize are
	// silently dropped by the expander.
	Phone  string `json:"phone" gorm:"type:varchar(20);not null;index"`
	Phone2 string `json:"phone2,omitempty" gorm:"type:varchar(20)"`
	Phone3 string `json:"phone3,omitempty" gorm:"type:varchar(20)"`

	Timezone string `json:"timezone,omitempty" gorm:"type:varchar(64)"` // IANA name, e.g. America/Chicago
	DNC      bool   `json:"dnc" gorm:"default:false;index"`             // contact-level do-not-call flag

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Contact model
func (Contact) TableName() string {
	return "contacts"
}

// FullName returns the display name for listings
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// PhoneNumbers returns the raw numbers in priority order, skipping blanks
func (c *Contact) PhoneNumbers() []string {
	out := make([]string, 0, 3)
	for _, p := range []string{c.Phone, c.Phone2, c.Phone3} {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
