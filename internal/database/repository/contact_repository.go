package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetByID retrieves a contact by ID, returning (nil, nil) when absent
func (r *ContactRepository) GetByID(id string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByGroupPaged retrieves one page of a group's contacts in stable order.
// The expander walks large groups page by page to bound memory.
func (r *ContactRepository) GetByGroupPaged(groupID string, offset, limit int) ([]*models.Contact, error) {
	var contacts []*models.Contact
	err := r.db.Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

// CountByGroup counts a group's contacts
func (r *ContactRepository) CountByGroup(groupID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Contact{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}
