package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type ProviderSettingsRepository struct {
	db *gorm.DB
}

func NewProviderSettingsRepository(db *gorm.DB) *ProviderSettingsRepository {
	return &ProviderSettingsRepository{db: db}
}

// Get returns the configured provider credentials, or (nil, nil) when the
// provider has not been set up yet
func (r *ProviderSettingsRepository) Get() (*models.ProviderSettings, error) {
	var settings models.ProviderSettings
	err := r.db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert creates or replaces the single credentials row
func (r *ProviderSettingsRepository) Upsert(accountSID, authToken, baseCallbackURL string) (*models.ProviderSettings, error) {
	existing, err := r.Get()
	if err != nil {
		return nil, err
	}
	if existing == nil {
		settings := &models.ProviderSettings{
			AccountSID:      accountSID,
			AuthToken:       authToken,
			BaseCallbackURL: baseCallbackURL,
		}
		if err := r.db.Create(settings).Error; err != nil {
			return nil, err
		}
		return settings, nil
	}
	existing.AccountSID = accountSID
	existing.AuthToken = authToken
	existing.BaseCallbackURL = baseCallbackURL
	if err := r.db.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}
