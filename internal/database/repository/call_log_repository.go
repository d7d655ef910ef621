package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

type CallLogRepository struct {
	db *gorm.DB
}

func NewCallLogRepository(db *gorm.DB) *CallLogRepository {
	return &CallLogRepository{db: db}
}

// BulkInsert inserts expansion rows, ignoring duplicate-key conflicts so a
// re-run or a racing insert never aborts the batch. Returns the number of
// rows actually inserted.
func (r *CallLogRepository) BulkInsert(rows []*models.CallLog) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500)
	if res.Error != nil {
		// Fall back to row-by-row so one poison row cannot sink the page
		inserted := 0
		for _, row := range rows {
			if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
				logrus.Warnf("Failed to insert call log for contact %s number %s: %v", row.ContactID, row.PhoneNumber, err)
				continue
			}
			inserted++
		}
		return inserted, nil
	}
	return int(res.RowsAffected), nil
}

// ExistingPairs returns the set of (contact, number) pairs already expanded
// for a campaign, keyed by utils.PairKey. Loaded once per expansion run.
func (r *CallLogRepository) ExistingPairs(campaignID string) (map[string]struct{}, error) {
	type pair struct {
		ContactID   string
		PhoneNumber string
	}
	var pairs []pair
	err := r.db.Model(&models.CallLog{}).
		Where("campaign_id = ?", campaignID).
		Select("contact_id", "phone_number").
		Find(&pairs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		out[utils.PairKey(p.ContactID, p.PhoneNumber)] = struct{}{}
	}
	return out, nil
}

// NextQueued claims the oldest queued row for a campaign, with its contact
// preloaded. Returns (nil, nil) when the queue is drained.
func (r *CallLogRepository) NextQueued(campaignID string) (*models.CallLog, error) {
	var row models.CallLog
	err := r.db.Preload("Contact").
		Where("campaign_id = ? AND status = ?", campaignID, models.CallStatusQueued).
		Order("created_at ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountByStatuses counts a campaign's rows in any of the given statuses
func (r *CallLogRepository) CountByStatuses(campaignID string, statuses ...models.CallStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.CallLog{}).
		Where("campaign_id = ? AND status IN ?", campaignID, statuses).
		Count(&count).Error
	return count, err
}

// GetByProviderCallID looks a row up by the provider's call identifier,
// returning (nil, nil) when unknown
func (r *CallLogRepository) GetByProviderCallID(providerCallID string) (*models.CallLog, error) {
	var row models.CallLog
	err := r.db.Where("provider_call_id = ?", providerCallID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkDialing claims a queued row for dialing: stamps the attempt time and
// advances the attempt counter. Done before the provider is contacted, so a
// placement failure still counts as an attempt.
func (r *CallLogRepository) MarkDialing(id string, at time.Time) error {
	return r.db.Model(&models.CallLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.CallStatusDialing,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_attempt_at": at,
		}).Error
}

// SetProviderCallID records the provider's call identifier once the provider
// accepted the call
func (r *CallLogRepository) SetProviderCallID(id, providerCallID string) error {
	return r.db.Model(&models.CallLog{}).Where("id = ?", id).Update("provider_call_id", providerCallID).Error
}

// TransitionFrom conditionally moves a row to `to` only when it currently
// sits in one of `from`. Illegal transitions are rejected at this boundary.
// The returned bool reports whether the update applied, which is how the
// reconciler keeps duplicate and out-of-order callbacks idempotent.
func (r *CallLogRepository) TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal call log transition %s -> %s", f, to)
		}
	}
	updates := map[string]interface{}{"status": to}
	if detail != "" {
		updates["detail"] = detail
	}
	res := r.db.Model(&models.CallLog{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetDuration stores the provider-reported duration in seconds
func (r *CallLogRepository) SetDuration(id string, seconds int) error {
	return r.db.Model(&models.CallLog{}).Where("id = ?", id).Update("duration", seconds).Error
}

// SetDetail stores the raw callback payload or a diagnostic on the row
func (r *CallLogRepository) SetDetail(id, detail string) error {
	return r.db.Model(&models.CallLog{}).Where("id = ?", id).Update("detail", detail).Error
}

// List returns a page of a campaign's rows. Rows the dialer already touched
// surface before still-queued ones, then by recency; searchable by number
// or status.
func (r *CallLogRepository) List(campaignID string, opts models.CallLogListOptions) ([]*models.CallLog, int64, error) {
	q := r.db.Model(&models.CallLog{}).Where("campaign_id = ?", campaignID)
	if opts.Search != "" {
		q = q.Where("phone_number LIKE ?", "%"+opts.Search+"%")
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*models.CallLog
	err := q.Preload("Contact").
		Order("CASE WHEN status = 'queued' THEN 1 ELSE 0 END, updated_at DESC").
		Offset(utils.CalculateOffset(opts.Page, opts.PageSize)).
		Limit(opts.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetAllByCampaign returns every row of a campaign (export path)
func (r *CallLogRepository) GetAllByCampaign(campaignID string) ([]*models.CallLog, error) {
	var rows []*models.CallLog
	err := r.db.Preload("Contact").
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteByCampaignID removes a campaign's rows (cascade delete). The
// campaign's worker must be stopped before calling this.
func (r *CallLogRepository) DeleteByCampaignID(campaignID string) error {
	return r.db.Delete(&models.CallLog{}, "campaign_id = ?", campaignID).Error
}
