package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// StatusEvent is one provider status callback, keyed by the provider's
// call identifier
type StatusEvent struct {
	ProviderCallID string
	Status         string
	Duration       *int
	RecordingURL   string
	Raw            models.JSON
}

// CallbackService reconciles provider status callbacks into the call log,
// the call records and the campaign counters. Reconciliation must be
// idempotent: the provider may deliver callbacks duplicated or out of
// order.
type CallbackService struct {
	campaigns  CampaignStore
	callLogs   CallLogStore
	records    CallRecordStore
	dnc        DNCStore
	provider   ProviderSource
	supervisor *DialerSupervisor
}

func NewCallbackService(campaigns CampaignStore, callLogs CallLogStore, records CallRecordStore, dnc DNCStore, provider ProviderSource, supervisor *DialerSupervisor) *CallbackService {
	return &CallbackService{
		campaigns:  campaigns,
		callLogs:   callLogs,
		records:    records,
		dnc:        dnc,
		provider:   provider,
		supervisor: supervisor,
	}
}

// ProcessStatus applies one status callback. Errors are logged by the
// caller and the callback is acknowledged regardless, so the provider
// never retries indefinitely.
func (s *CallbackService) ProcessStatus(event StatusEvent) error {
	row, err := s.callLogs.GetByProviderCallID(event.ProviderCallID)
	if err != nil {
		return err
	}
	record, err := s.records.GetByProviderCallID(event.ProviderCallID)
	if err != nil {
		return err
	}
	if row == nil && record == nil {
		logrus.Infof("Discarding callback for unknown call %s", event.ProviderCallID)
		return nil
	}

	switch normalizeProviderStatus(event.Status) {
	case models.CallStatusAnswered:
		s.applyAnswered(row, record)
	case models.CallStatusCompleted:
		s.applyCompleted(row, record)
	case models.CallStatusNoAnswer:
		s.applyTerminal(row, record, models.CallStatusNoAnswer)
	case models.CallStatusBusy:
		s.applyTerminal(row, record, models.CallStatusBusy)
	case models.CallStatusFailed:
		s.applyTerminal(row, record, models.CallStatusFailed)
	case models.CallStatusCanceled:
		s.applyTerminal(row, record, models.CallStatusCanceled)
	case models.CallStatusRinging:
		s.applyRinging(row, record)
	default:
		// initiated, queued: no state or counter side effects
	}

	s.persistCallData(event, row, record)

	if normalizeProviderStatus(event.Status) == models.CallStatusCompleted && record != nil {
		s.fetchBilling(event.ProviderCallID, record)
	}

	if row != nil {
		s.maybeCompleteCampaign(row.CampaignID)
	}
	return nil
}

// normalizeProviderStatus maps the provider's status vocabulary onto ours.
// The provider reports a live two-way call as "in-progress".
func normalizeProviderStatus(status string) models.CallStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "in-progress", "answered":
		return models.CallStatusAnswered
	case "completed":
		return models.CallStatusCompleted
	case "no-answer", "no_answer":
		return models.CallStatusNoAnswer
	case "busy":
		return models.CallStatusBusy
	case "failed":
		return models.CallStatusFailed
	case "canceled", "cancelled":
		return models.CallStatusCanceled
	case "ringing":
		return models.CallStatusRinging
	case "initiated":
		return models.CallStatusInitiated
	}
	return models.CallStatus(status)
}

// applyAnswered moves the row into answered on its first such transition
// and counts it as both answered and completed for the campaign. Later
// callbacks refine the row without touching the counters again.
func (s *CallbackService) applyAnswered(row *models.CallLog, record *models.CallRecord) {
	if row != nil {
		applied, err := s.callLogs.TransitionFrom(row.ID, models.CallStatusAnswered, "",
			models.CallStatusDialing, models.CallStatusRinging)
		if err != nil {
			logrus.Errorf("Failed to mark attempt %s answered: %v", row.ID, err)
		} else if applied {
			if err := s.campaigns.IncrementCounters(row.CampaignID, models.CounterDelta{Answered: 1, Completed: 1}); err != nil {
				logrus.Errorf("Failed to increment counters for campaign %s: %v", row.CampaignID, err)
			}
		}
	}
	if record != nil {
		if _, err := s.records.TransitionFrom(record.ID, models.CallStatusAnswered, "",
			models.CallStatusInitiated, models.CallStatusDialing, models.CallStatusRinging); err != nil {
			logrus.Errorf("Failed to mark call record %s answered: %v", record.ID, err)
		}
	}
}

// applyCompleted finalizes an answered call as completed. A "completed"
// callback for a call never seen answered means the leg was not picked up,
// so it is demoted to no_answer.
func (s *CallbackService) applyCompleted(row *models.CallLog, record *models.CallRecord) {
	if row != nil {
		applied, err := s.callLogs.TransitionFrom(row.ID, models.CallStatusCompleted, "",
			models.CallStatusAnswered)
		if err != nil {
			logrus.Errorf("Failed to finalize attempt %s: %v", row.ID, err)
		}
		if !applied && err == nil {
			demoted, err := s.callLogs.TransitionFrom(row.ID, models.CallStatusNoAnswer,
				"call ended without being answered",
				models.CallStatusDialing, models.CallStatusRinging)
			if err != nil {
				logrus.Errorf("Failed to demote attempt %s to no_answer: %v", row.ID, err)
			} else if demoted {
				if err := s.campaigns.IncrementCounters(row.CampaignID, models.CounterDelta{Completed: 1}); err != nil {
					logrus.Errorf("Failed to increment counters for campaign %s: %v", row.CampaignID, err)
				}
			}
		}
	}
	if record != nil {
		applied, err := s.records.TransitionFrom(record.ID, models.CallStatusCompleted, "",
			models.CallStatusAnswered)
		if err != nil {
			logrus.Errorf("Failed to finalize call record %s: %v", record.ID, err)
		}
		if !applied && err == nil {
			if _, err := s.records.TransitionFrom(record.ID, models.CallStatusNoAnswer,
				"call ended without being answered",
				models.CallStatusInitiated, models.CallStatusDialing, models.CallStatusRinging); err != nil {
				logrus.Errorf("Failed to demote call record %s to no_answer: %v", record.ID, err)
			}
		}
	}
}

// applyTerminal passes a provider terminal status through. The completed
// counter advances only when this is the row's first terminal transition;
// a row already answered keeps its count and just has its status refined.
func (s *CallbackService) applyTerminal(row *models.CallLog, record *models.CallRecord, to models.CallStatus) {
	if row != nil {
		applied, err := s.callLogs.TransitionFrom(row.ID, to, "",
			models.CallStatusDialing, models.CallStatusRinging)
		if err != nil {
			logrus.Errorf("Failed to mark attempt %s %s: %v", row.ID, to, err)
		}
		if applied {
			if err := s.campaigns.IncrementCounters(row.CampaignID, models.CounterDelta{Completed: 1}); err != nil {
				logrus.Errorf("Failed to increment counters for campaign %s: %v", row.CampaignID, err)
			}
		} else if err == nil && models.CallStatusAnswered.CanTransitionTo(to) {
			if _, err := s.callLogs.TransitionFrom(row.ID, to, "", models.CallStatusAnswered); err != nil {
				logrus.Errorf("Failed to refine attempt %s to %s: %v", row.ID, to, err)
			}
		}
	}
	if record != nil {
		applied, err := s.records.TransitionFrom(record.ID, to, "",
			models.CallStatusInitiated, models.CallStatusDialing, models.CallStatusRinging)
		if err != nil {
			logrus.Errorf("Failed to mark call record %s %s: %v", record.ID, to, err)
		}
		if !applied && err == nil && models.CallStatusAnswered.CanTransitionTo(to) {
			if _, err := s.records.TransitionFrom(record.ID, to, "", models.CallStatusAnswered); err != nil {
				logrus.Errorf("Failed to refine call record %s to %s: %v", record.ID, to, err)
			}
		}
	}
}

func (s *CallbackService) applyRinging(row *models.CallLog, record *models.CallRecord) {
	if row != nil {
		if _, err := s.callLogs.TransitionFrom(row.ID, models.CallStatusRinging, "", models.CallStatusDialing); err != nil {
			logrus.Errorf("Failed to mark attempt %s ringing: %v", row.ID, err)
		}
	}
	if record != nil {
		if _, err := s.records.TransitionFrom(record.ID, models.CallStatusRinging, "",
			models.CallStatusInitiated, models.CallStatusDialing); err != nil {
			logrus.Errorf("Failed to mark call record %s ringing: %v", record.ID, err)
		}
	}
}

// persistCallData stores duration, recording and the raw payload for audit
func (s *CallbackService) persistCallData(event StatusEvent, row *models.CallLog, record *models.CallRecord) {
	if row != nil {
		if event.Duration != nil {
			if err := s.callLogs.SetDuration(row.ID, *event.Duration); err != nil {
				logrus.Errorf("Failed to store duration on attempt %s: %v", row.ID, err)
			}
		}
		if len(event.Raw) > 0 {
			if raw, err := json.Marshal(event.Raw); err == nil {
				if err := s.callLogs.SetDetail(row.ID, string(raw)); err != nil {
					logrus.Errorf("Failed to store payload on attempt %s: %v", row.ID, err)
				}
			}
		}
	}
	if record != nil {
		if event.Duration != nil || event.RecordingURL != "" {
			if err := s.records.SetCallResult(record.ID, event.Duration, event.RecordingURL); err != nil {
				logrus.Errorf("Failed to store call result on record %s: %v", record.ID, err)
			}
		}
		if len(event.Raw) > 0 {
			if err := s.records.SetRawPayload(record.ID, event.Raw); err != nil {
				logrus.Errorf("Failed to store payload on record %s: %v", record.ID, err)
			}
		}
	}
}

// fetchBilling asks the provider for the authoritative cost and direction
// of a finished call. Best effort: a failure here never fails the
// reconciliation.
func (s *CallbackService) fetchBilling(providerCallID string, record *models.CallRecord) {
	client, _, err := s.provider.Client()
	if err != nil {
		logrus.Warnf("Skipping billing lookup for call %s: %v", providerCallID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	info, err := client.FetchCall(ctx, providerCallID)
	if err != nil {
		logrus.Warnf("Billing lookup failed for call %s: %v", providerCallID, err)
		return
	}
	direction := models.CallDirectionOutbound
	if strings.Contains(strings.ToLower(info.Direction), "inbound") {
		direction = models.CallDirectionInbound
	}
	if err := s.records.SetBilling(record.ID, info.Cost, direction); err != nil {
		logrus.Errorf("Failed to store billing on record %s: %v", record.ID, err)
	}
}

// maybeCompleteCampaign is the asynchronous completion path: once a running
// campaign has nothing queued and nothing in flight, complete it and stop
// its worker. The conditional transition keeps this safe to race against
// the worker's own exhaustion check.
func (s *CallbackService) maybeCompleteCampaign(campaignID string) {
	campaign, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		logrus.Errorf("Failed to load campaign %s for completion check: %v", campaignID, err)
		return
	}
	if campaign == nil || campaign.Status != models.CampaignStatusRunning {
		return
	}
	open, err := s.callLogs.CountByStatuses(campaignID, models.CallStatusQueued, models.CallStatusDialing, models.CallStatusRinging)
	if err != nil {
		logrus.Errorf("Failed to count open attempts for campaign %s: %v", campaignID, err)
		return
	}
	if open > 0 {
		return
	}
	moved, err := s.campaigns.TransitionStatus(campaignID, models.CampaignStatusCompleted, models.CampaignStatusRunning)
	if err != nil {
		logrus.Errorf("Failed to complete campaign %s: %v", campaignID, err)
		return
	}
	if moved {
		logrus.Infof("Campaign %s completed: last callback reconciled", campaignID)
		if s.supervisor != nil {
			s.supervisor.StopWorker(campaignID)
		}
	}
}

// ProcessIVRAction handles in-call keypad input. Digit 9 opts the callee
// into the do-not-call registry. Returns whether an opt-out was recorded.
func (s *CallbackService) ProcessIVRAction(providerCallID, digits string) (bool, error) {
	if strings.TrimSpace(digits) != "9" {
		return false, nil
	}
	row, err := s.callLogs.GetByProviderCallID(providerCallID)
	if err != nil {
		return false, err
	}
	if row == nil {
		logrus.Infof("Discarding IVR action for unknown call %s", providerCallID)
		return false, nil
	}
	if err := s.dnc.Add(row.PhoneNumber, models.DNCSourceIVROptOut); err != nil {
		return false, err
	}
	logrus.Infof("Number %s opted out via IVR on call %s", row.PhoneNumber, providerCallID)
	return true, nil
}
