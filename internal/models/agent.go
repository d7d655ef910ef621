package models

import (
	"time"
)

// Agent represents a human agent campaigns can be assigned to
type Agent struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	Email    string `json:"email" gorm:"type:varchar(255);unique"`
	IsActive bool   `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Agent model
func (Agent) TableName() string {
	return "agents"
}
