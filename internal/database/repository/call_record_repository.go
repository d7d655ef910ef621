package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type CallRecordRepository struct {
	db *gorm.DB
}

func NewCallRecordRepository(db *gorm.DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

// Create creates a call detail record at the moment a dial is attempted
func (r *CallRecordRepository) Create(record *models.CallRecord) error {
	return r.db.Create(record).Error
}

// GetByProviderCallID looks a record up by the provider's call identifier,
// returning (nil, nil) when unknown
func (r *CallRecordRepository) GetByProviderCallID(providerCallID string) (*models.CallRecord, error) {
	var record models.CallRecord
	err := r.db.Where("provider_call_id = ?", providerCallID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SetProviderCallID stores the provider call id once the provider accepted
// the call, and mirrors the dialing status
func (r *CallRecordRepository) SetProviderCallID(id, providerCallID string) error {
	return r.db.Model(&models.CallRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_call_id": providerCallID,
			"status":           models.CallStatusDialing,
		}).Error
}

// TransitionFrom conditionally moves a record's status, mirroring the call
// log transition rules
func (r *CallRecordRepository) TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal call record transition %s -> %s", f, to)
		}
	}
	updates := map[string]interface{}{"status": to}
	if detail != "" {
		updates["detail"] = detail
	}
	res := r.db.Model(&models.CallRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetCallResult stores whichever of duration and recording locator the
// callback carried. Absent fields never overwrite previously stored values.
func (r *CallRecordRepository) SetCallResult(id string, durationSeconds *int, recordingURL string) error {
	updates := map[string]interface{}{}
	if durationSeconds != nil {
		updates["duration_seconds"] = *durationSeconds
	}
	if recordingURL != "" {
		updates["recording_url"] = recordingURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.CallRecord{}).Where("id = ?", id).Updates(updates).Error
}

// SetBilling stores the authoritative cost and direction from the provider
// follow-up lookup
func (r *CallRecordRepository) SetBilling(id string, cost float64, direction models.CallDirection) error {
	updates := map[string]interface{}{"cost": cost}
	if direction != "" {
		updates["direction"] = direction
	}
	return r.db.Model(&models.CallRecord{}).Where("id = ?", id).Updates(updates).Error
}

// SetRawPayload persists the raw provider callback body for audit
func (r *CallRecordRepository) SetRawPayload(id string, payload models.JSON) error {
	return r.db.Model(&models.CallRecord{}).Where("id = ?", id).Update("raw_payload", payload).Error
}

// CountAttemptsSince counts dial attempts for an exact (contact, number)
// pair created at or after `since`. Ceiling checks use this with the start
// of the current day and week.
func (r *CallRecordRepository) CountAttemptsSince(contactID, toNumber string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.CallRecord{}).
		Where("contact_id = ? AND to_number = ? AND created_at >= ?", contactID, toNumber, since).
		Count(&count).Error
	return count, err
}

// CountAttemptsTotal counts all dial attempts ever made for the pair
func (r *CallRecordRepository) CountAttemptsTotal(contactID, toNumber string) (int64, error) {
	var count int64
	err := r.db.Model(&models.CallRecord{}).
		Where("contact_id = ? AND to_number = ?", contactID, toNumber).
		Count(&count).Error
	return count, err
}
