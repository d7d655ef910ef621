package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// GetByID retrieves an agent by ID, returning (nil, nil) when absent
func (r *AgentRepository) GetByID(id string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.First(&agent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
