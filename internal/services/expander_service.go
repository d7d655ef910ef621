package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

// expansionPageSize bounds memory when walking large contact groups
const expansionPageSize = 10000

// ExpanderService turns a campaign's contact group into call log rows: one
// row per unique (contact, number) pair, classified queued or dnc_blocked,
// with a caller number assigned round-robin.
type ExpanderService struct {
	campaigns CampaignStore
	contacts  ContactStore
	callLogs  CallLogStore
	dnc       DNCStore

	pageSize int
}

func NewExpanderService(campaigns CampaignStore, contacts ContactStore, callLogs CallLogStore, dnc DNCStore) *ExpanderService {
	return &ExpanderService{
		campaigns: campaigns,
		contacts:  contacts,
		callLogs:  callLogs,
		dnc:       dnc,
		pageSize:  expansionPageSize,
	}
}

// Expand runs the full expansion for a campaign. Safe to re-run: pairs
// already present in the call log are skipped. Any unrecoverable error
// fails the campaign with a stored diagnostic and is never retried
// automatically.
func (s *ExpanderService) Expand(campaignID string) error {
	campaign, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to load campaign: %w", err))
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found", campaignID)
	}
	if len(campaign.CallerNumbers) == 0 {
		return s.fail(campaignID, fmt.Errorf("campaign has no caller numbers"))
	}

	logrus.Infof("Starting expansion for campaign %s (group %s)", campaign.ID, campaign.ContactGroupID)

	dncSet, err := s.dnc.AllNumbers()
	if err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to load DNC registry: %w", err))
	}
	existing, err := s.callLogs.ExistingPairs(campaignID)
	if err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to load existing attempts: %w", err))
	}

	totalContacts := 0
	queued := 0
	blocked := 0
	callerIdx := 0

	for offset := 0; ; offset += s.pageSize {
		contacts, err := s.contacts.GetByGroupPaged(campaign.ContactGroupID, offset, s.pageSize)
		if err != nil {
			return s.fail(campaignID, fmt.Errorf("failed to load contacts page at offset %d: %w", offset, err))
		}
		if len(contacts) == 0 {
			break
		}
		totalContacts += len(contacts)

		rows := make([]*models.CallLog, 0, len(contacts))
		for _, contact := range contacts {
			seen := map[string]struct{}{}
			for i, raw := range contact.PhoneNumbers() {
				number, err := utils.NormalizePhone(raw)
				if err != nil {
					if i == 0 {
						logrus.Warnf("Primary number %q of contact %s does not normalize, skipping", raw, contact.ID)
					}
					continue
				}
				if _, dup := seen[number]; dup {
					continue
				}
				seen[number] = struct{}{}

				key := utils.PairKey(contact.ID, number)
				if _, present := existing[key]; present {
					continue
				}
				existing[key] = struct{}{}

				row := &models.CallLog{
					CampaignID:   campaign.ID,
					ContactID:    contact.ID,
					PhoneNumber:  number,
					CallerNumber: campaign.CallerNumbers[callerIdx%len(campaign.CallerNumbers)],
					Status:       models.CallStatusQueued,
				}
				callerIdx++

				if _, onDNC := dncSet[number]; onDNC {
					row.Status = models.CallStatusDNCBlocked
					row.Detail = "number is on the do-not-call registry"
					blocked++
				} else {
					queued++
				}
				rows = append(rows, row)
			}
		}

		if _, err := s.callLogs.BulkInsert(rows); err != nil {
			return s.fail(campaignID, fmt.Errorf("failed to insert attempts at offset %d: %w", offset, err))
		}
		if len(contacts) < s.pageSize {
			break
		}
	}

	// Recount from the store rather than trusting the per-run tally: a
	// re-delivered expansion job skips every pair, and BulkInsert drops
	// rows lost to conflicts, so contacts_queued must reflect what is
	// actually persisted.
	queuedCount, err := s.callLogs.CountByStatuses(campaignID, models.CallStatusQueued)
	if err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to count queued attempts: %w", err))
	}
	if err := s.campaigns.SetExpansionCounts(campaignID, totalContacts, int(queuedCount)); err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to store expansion counts: %w", err))
	}
	if _, err := s.campaigns.TransitionStatus(campaignID, models.CampaignStatusQueued, models.CampaignStatusPending); err != nil {
		return s.fail(campaignID, fmt.Errorf("failed to mark campaign queued: %w", err))
	}

	logrus.Infof("Expansion done for campaign %s: %d contacts, %d queued (%d new), %d dnc-blocked",
		campaignID, totalContacts, queuedCount, queued, blocked)
	return nil
}

func (s *ExpanderService) fail(campaignID string, cause error) error {
	logrus.Errorf("Expansion failed for campaign %s: %v", campaignID, cause)
	if err := s.campaigns.SetFailed(campaignID, cause.Error()); err != nil {
		logrus.Errorf("Failed to mark campaign %s failed: %v", campaignID, err)
	}
	return cause
}
