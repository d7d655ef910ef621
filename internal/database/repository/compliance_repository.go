package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type ComplianceRepository struct {
	db *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

// GetPolicy returns the singleton policy, creating it with defaults on
// first access
func (r *ComplianceRepository) GetPolicy() (*models.CompliancePolicy, error) {
	var policy models.CompliancePolicy
	err := r.db.First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		policy = models.CompliancePolicy{
			DailyAttemptLimit:  3,
			WeeklyAttemptLimit: 7,
			TotalAttemptLimit:  10,
			CallingHoursStart:  "08:00",
			CallingHoursEnd:    "21:00",
			DefaultTimezone:    "America/New_York",
			TCPAEnabled:        true,
			FDCPAEnabled:       true,
			DNCEnabled:         true,
		}
		if err := r.db.Create(&policy).Error; err != nil {
			return nil, err
		}
		return &policy, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpdatePolicy overwrites the singleton policy fields
func (r *ComplianceRepository) UpdatePolicy(req *models.UpdateCompliancePolicyRequest) (*models.CompliancePolicy, error) {
	policy, err := r.GetPolicy()
	if err != nil {
		return nil, err
	}
	policy.DailyAttemptLimit = req.DailyAttemptLimit
	policy.WeeklyAttemptLimit = req.WeeklyAttemptLimit
	policy.TotalAttemptLimit = req.TotalAttemptLimit
	policy.CallingHoursStart = req.CallingHoursStart
	policy.CallingHoursEnd = req.CallingHoursEnd
	policy.DefaultTimezone = req.DefaultTimezone
	policy.TCPAEnabled = *req.TCPAEnabled
	policy.FDCPAEnabled = *req.FDCPAEnabled
	policy.DNCEnabled = *req.DNCEnabled
	if err := r.db.Save(policy).Error; err != nil {
		return nil, err
	}
	return policy, nil
}

// CreateViolation appends an audit row
func (r *ComplianceRepository) CreateViolation(v *models.ComplianceViolation) error {
	return r.db.Create(v).Error
}

// ListViolations returns a page of audit rows, newest first, optionally
// filtered by violation type
func (r *ComplianceRepository) ListViolations(violationType string, offset, limit int) ([]*models.ComplianceViolation, int64, error) {
	q := r.db.Model(&models.ComplianceViolation{})
	if violationType != "" {
		q = q.Where("type = ?", violationType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var violations []*models.ComplianceViolation
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&violations).Error
	if err != nil {
		return nil, 0, err
	}
	return violations, total, nil
}

// AllViolations returns every audit row, oldest first (export path)
func (r *ComplianceRepository) AllViolations() ([]*models.ComplianceViolation, error) {
	var violations []*models.ComplianceViolation
	err := r.db.Order("created_at ASC").Find(&violations).Error
	return violations, err
}
