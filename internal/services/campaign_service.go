package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignNameTaken = errors.New("a campaign with this name already exists")
)

// ExpansionPublisher hands an expansion job off for asynchronous execution
type ExpansionPublisher interface {
	PublishExpansion(campaignID string) error
}

// CampaignService is the operations surface of the dialer: campaign
// creation with validation, worker start/stop, deletion and log listing
type CampaignService struct {
	campaigns  CampaignStore
	callLogs   CallLogStore
	agents     AgentStore
	supervisor *DialerSupervisor
	publisher  ExpansionPublisher
}

func NewCampaignService(campaigns CampaignStore, callLogs CallLogStore, agents AgentStore, supervisor *DialerSupervisor, publisher ExpansionPublisher) *CampaignService {
	return &CampaignService{
		campaigns:  campaigns,
		callLogs:   callLogs,
		agents:     agents,
		supervisor: supervisor,
		publisher:  publisher,
	}
}

// Create validates and persists a new campaign in pending status, then
// hands the attempt expansion off asynchronously
func (s *CampaignService) Create(req *models.CreateCampaignRequest) (*models.Campaign, error) {
	existing, err := s.campaigns.GetByName(req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check campaign name: %w", err)
	}
	if existing != nil {
		return nil, ErrCampaignNameTaken
	}

	if req.CallsPerMinute < 1 || req.CallsPerMinute > 60 {
		return nil, fmt.Errorf("calls per minute must be between 1 and 60")
	}

	callerNumbers := make([]string, 0, len(req.CallerNumbers))
	for _, raw := range req.CallerNumbers {
		number, err := utils.NormalizePhone(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid caller number %q", raw)
		}
		callerNumbers = append(callerNumbers, number)
	}
	if len(callerNumbers) == 0 {
		return nil, fmt.Errorf("at least one caller number is required")
	}

	if req.AgentID != nil {
		agent, err := s.agents.GetByID(*req.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check agent: %w", err)
		}
		if agent == nil {
			return nil, fmt.Errorf("agent %s not found", *req.AgentID)
		}
	}

	campaign := &models.Campaign{
		Name:           req.Name,
		ContactGroupID: req.ContactGroupID,
		AgentID:        req.AgentID,
		CallerNumbers:  callerNumbers,
		CallsPerMinute: req.CallsPerMinute,
		Status:         models.CampaignStatusPending,
	}
	if err := s.campaigns.Create(campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	if err := s.publisher.PublishExpansion(campaign.ID); err != nil {
		logrus.Errorf("Failed to publish expansion for campaign %s: %v", campaign.ID, err)
		if ferr := s.campaigns.SetFailed(campaign.ID, fmt.Sprintf("failed to schedule expansion: %v", err)); ferr != nil {
			logrus.Errorf("Failed to mark campaign %s failed: %v", campaign.ID, ferr)
		}
		return nil, fmt.Errorf("failed to schedule expansion: %w", err)
	}

	logrus.Infof("Created campaign %s (%s), expansion scheduled", campaign.ID, campaign.Name)
	return campaign, nil
}

// GetByID returns one campaign
func (s *CampaignService) GetByID(id string) (*models.Campaign, error) {
	campaign, err := s.campaigns.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// GetAuthorized returns a campaign only when the caller may see it: agents
// are limited to campaigns assigned to them, everything else is invisible
// to them (not found rather than forbidden, to avoid confirming the id
// exists)
func (s *CampaignService) GetAuthorized(id, role, userID string) (*models.Campaign, error) {
	campaign, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if role == "agent" && (campaign.AgentID == nil || *campaign.AgentID != userID) {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// List returns the campaigns visible to the caller: admins see all, agents
// see only campaigns assigned to them
func (s *CampaignService) List(role, userID string) ([]*models.Campaign, error) {
	if role == "agent" {
		return s.campaigns.GetByAgentID(userID)
	}
	return s.campaigns.GetAll()
}

// SetStatus starts or pauses a campaign's worker. Terminal campaigns are
// rejected via the transition rules.
func (s *CampaignService) SetStatus(id, status string) (*models.Campaign, error) {
	campaign, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	switch models.CampaignStatus(status) {
	case models.CampaignStatusRunning:
		moved, err := s.campaigns.TransitionStatus(id, models.CampaignStatusRunning,
			models.CampaignStatusQueued, models.CampaignStatusPaused)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, fmt.Errorf("campaign cannot start from status %s", campaign.Status)
		}
		if err := s.supervisor.StartWorker(id); err != nil {
			return nil, fmt.Errorf("failed to start worker: %w", err)
		}
	case models.CampaignStatusPaused:
		moved, err := s.campaigns.TransitionStatus(id, models.CampaignStatusPaused,
			models.CampaignStatusRunning)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, fmt.Errorf("campaign cannot pause from status %s", campaign.Status)
		}
		s.supervisor.StopWorker(id)
	default:
		return nil, fmt.Errorf("status must be running or paused")
	}

	return s.GetByID(id)
}

// Delete stops the campaign's worker first, then removes its call log rows
// and the campaign itself
func (s *CampaignService) Delete(id string) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	s.supervisor.StopWorker(id)
	if err := s.callLogs.DeleteByCampaignID(id); err != nil {
		return fmt.Errorf("failed to delete call logs: %w", err)
	}
	if err := s.campaigns.Delete(id); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	logrus.Infof("Deleted campaign %s", id)
	return nil
}

// ListLogs returns a page of a campaign's call log, subject to the same
// visibility rules as GetAuthorized
func (s *CampaignService) ListLogs(campaignID, role, userID string, opts models.CallLogListOptions) ([]*models.CallLog, int64, error) {
	if _, err := s.GetAuthorized(campaignID, role, userID); err != nil {
		return nil, 0, err
	}
	return s.callLogs.List(campaignID, opts)
}
