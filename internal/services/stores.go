package services

import (
	"time"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// The engine services depend on narrow store interfaces rather than the
// concrete gorm repositories, so the scheduling and reconciliation logic
// can be tested against in-memory fakes without a database.

type CampaignStore interface {
	Create(campaign *models.Campaign) error
	GetByID(id string) (*models.Campaign, error)
	GetByName(name string) (*models.Campaign, error)
	GetAll() ([]*models.Campaign, error)
	GetByAgentID(agentID string) ([]*models.Campaign, error)
	GetByStatus(status models.CampaignStatus) ([]*models.Campaign, error)
	TransitionStatus(id string, to models.CampaignStatus, from ...models.CampaignStatus) (bool, error)
	SetFailed(id, message string) error
	SetExpansionCounts(id string, totalContacts, queued int) error
	IncrementCounters(id string, d models.CounterDelta) error
	Delete(id string) error
}

type CallLogStore interface {
	BulkInsert(rows []*models.CallLog) (int, error)
	ExistingPairs(campaignID string) (map[string]struct{}, error)
	NextQueued(campaignID string) (*models.CallLog, error)
	CountByStatuses(campaignID string, statuses ...models.CallStatus) (int64, error)
	GetByProviderCallID(providerCallID string) (*models.CallLog, error)
	MarkDialing(id string, at time.Time) error
	SetProviderCallID(id, providerCallID string) error
	TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error)
	SetDuration(id string, seconds int) error
	SetDetail(id, detail string) error
	List(campaignID string, opts models.CallLogListOptions) ([]*models.CallLog, int64, error)
	GetAllByCampaign(campaignID string) ([]*models.CallLog, error)
	DeleteByCampaignID(campaignID string) error
}

type CallRecordStore interface {
	Create(record *models.CallRecord) error
	GetByProviderCallID(providerCallID string) (*models.CallRecord, error)
	SetProviderCallID(id, providerCallID string) error
	TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error)
	SetCallResult(id string, durationSeconds *int, recordingURL string) error
	SetBilling(id string, cost float64, direction models.CallDirection) error
	SetRawPayload(id string, payload models.JSON) error
	CountAttemptsSince(contactID, toNumber string, since time.Time) (int64, error)
	CountAttemptsTotal(contactID, toNumber string) (int64, error)
}

type ContactStore interface {
	GetByID(id string) (*models.Contact, error)
	GetByGroupPaged(groupID string, offset, limit int) ([]*models.Contact, error)
	CountByGroup(groupID string) (int64, error)
}

type DNCStore interface {
	Add(phoneNumber, source string) error
	Remove(phoneNumber string) error
	Contains(phoneNumber string) (bool, error)
	AllNumbers() (map[string]struct{}, error)
	List(offset, limit int) ([]*models.DNCEntry, int64, error)
}

type ComplianceStore interface {
	GetPolicy() (*models.CompliancePolicy, error)
	UpdatePolicy(req *models.UpdateCompliancePolicyRequest) (*models.CompliancePolicy, error)
	CreateViolation(v *models.ComplianceViolation) error
	ListViolations(violationType string, offset, limit int) ([]*models.ComplianceViolation, int64, error)
	AllViolations() ([]*models.ComplianceViolation, error)
}

type AgentStore interface {
	GetByID(id string) (*models.Agent, error)
}

type ProviderSettingsStore interface {
	Get() (*models.ProviderSettings, error)
	Upsert(accountSID, authToken, baseCallbackURL string) (*models.ProviderSettings, error)
}
