package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// GetByID retrieves a campaign by ID, returning (nil, nil) when absent
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.First(&campaign, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// GetByName retrieves a campaign by its unique name
func (r *CampaignRepository) GetByName(name string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.First(&campaign, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// GetAll retrieves all campaigns, newest first
func (r *CampaignRepository) GetAll() ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

// GetByAgentID retrieves campaigns assigned to a specific agent
func (r *CampaignRepository) GetByAgentID(agentID string) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.Where("agent_id = ?", agentID).Order("created_at DESC").Find(&campaigns).Error
	return campaigns, err
}

// GetByStatus retrieves campaigns in the given status (used for boot recovery)
func (r *CampaignRepository) GetByStatus(status models.CampaignStatus) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.Where("status = ?", status).Find(&campaigns).Error
	return campaigns, err
}

// TransitionStatus performs a conditional status update: the campaign moves
// to `to` only if it is currently in one of `from`. Illegal transitions are
// rejected here rather than left to callers. Returns whether the row moved,
// so racing completion paths (worker tick vs. reconciler) stay idempotent.
func (r *CampaignRepository) TransitionStatus(id string, to models.CampaignStatus, from ...models.CampaignStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal campaign transition %s -> %s", f, to)
		}
	}
	res := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetFailed moves a campaign to failed from any non-terminal status and
// stores the diagnostic message
func (r *CampaignRepository) SetFailed(id, message string) error {
	return r.db.Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", id, []models.CampaignStatus{
			models.CampaignStatusPending,
			models.CampaignStatusQueued,
			models.CampaignStatusRunning,
			models.CampaignStatusPaused,
		}).
		Updates(map[string]interface{}{
			"status":        models.CampaignStatusFailed,
			"error_message": message,
		}).Error
}

// SetExpansionCounts persists the final counters of an expansion run
func (r *CampaignRepository) SetExpansionCounts(id string, totalContacts, queued int) error {
	return r.db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_contacts":  totalContacts,
			"contacts_queued": queued,
		}).Error
}

// IncrementCounters applies counter deltas atomically. Worker ticks and
// callback reconciliation mutate the same row concurrently, so increments
// must happen in SQL, never read-modify-write in application code.
func (r *CampaignRepository) IncrementCounters(id string, d models.CounterDelta) error {
	updates := map[string]interface{}{}
	if d.Called != 0 {
		updates["contacts_called"] = gorm.Expr("contacts_called + ?", d.Called)
	}
	if d.Answered != 0 {
		updates["contacts_answered"] = gorm.Expr("contacts_answered + ?", d.Answered)
	}
	if d.Completed != 0 {
		updates["contacts_completed"] = gorm.Expr("contacts_completed + ?", d.Completed)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).Where("id = ?", id).Updates(updates).Error
}

// Delete deletes a campaign. Call log cleanup is handled by the service,
// which must stop the campaign's worker first.
func (r *CampaignRepository) Delete(id string) error {
	return r.db.Delete(&models.Campaign{}, "id = ?", id).Error
}
