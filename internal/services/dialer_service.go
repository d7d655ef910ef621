package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services/telephony"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

// ProviderSource hands out the current telephony client and the public base
// URL callbacks should be delivered to. telephony.Manager implements it.
type ProviderSource interface {
	Client() (telephony.Client, string, error)
}

// DialerService executes one dialing tick for a campaign: claim the oldest
// queued attempt, run compliance, place the call. One row per tick.
type DialerService struct {
	campaigns  CampaignStore
	callLogs   CallLogStore
	records    CallRecordStore
	compliance *ComplianceService
	provider   ProviderSource
}

func NewDialerService(campaigns CampaignStore, callLogs CallLogStore, records CallRecordStore, compliance *ComplianceService, provider ProviderSource) *DialerService {
	return &DialerService{
		campaigns:  campaigns,
		callLogs:   callLogs,
		records:    records,
		compliance: compliance,
		provider:   provider,
	}
}

// Tick processes at most one queued attempt for the campaign. The returned
// bool reports whether the worker should stop (campaign no longer running,
// or exhausted).
func (s *DialerService) Tick(campaignID string) bool {
	campaign, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		logrus.Errorf("Worker %s: failed to load campaign: %v", campaignID, err)
		return false
	}
	if campaign == nil || campaign.Status != models.CampaignStatusRunning {
		return true
	}

	row, err := s.callLogs.NextQueued(campaignID)
	if err != nil {
		logrus.Errorf("Worker %s: failed to claim queued attempt: %v", campaignID, err)
		return false
	}
	if row == nil {
		return s.checkExhausted(campaignID)
	}

	if row.Contact.ID == "" {
		s.failAttempt(row, nil, "contact no longer exists")
		return false
	}
	contact := &row.Contact

	record := &models.CallRecord{
		CampaignID: campaign.ID,
		ContactID:  row.ContactID,
		AgentID:    campaign.AgentID,
		FromNumber: row.CallerNumber,
		ToNumber:   row.PhoneNumber,
		Direction:  models.CallDirectionOutbound,
		Status:     models.CallStatusInitiated,
	}
	if err := s.records.Create(record); err != nil {
		s.failAttempt(row, nil, fmt.Sprintf("failed to create call record: %v", err))
		return false
	}

	verdict, err := s.compliance.Evaluate(campaign, contact, row.PhoneNumber)
	if err != nil {
		s.failAttempt(row, record, fmt.Sprintf("compliance evaluation failed: %v", err))
		return false
	}
	if !verdict.Allowed {
		s.blockAttempt(row, record, verdict)
		return false
	}

	client, callbackBase, err := s.provider.Client()
	if err != nil {
		s.failAttempt(row, record, fmt.Sprintf("telephony provider unavailable: %v", err))
		return false
	}

	// Claim before placing: a placement failure still counts as an attempt
	if err := s.callLogs.MarkDialing(row.ID, time.Now()); err != nil {
		s.failAttempt(row, record, fmt.Sprintf("failed to claim attempt: %v", err))
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	callID, err := client.PlaceCall(ctx, telephony.PlaceCallRequest{
		From:              row.CallerNumber,
		To:                row.PhoneNumber,
		StatusCallbackURL: callbackBase + "/webhooks/call-status",
		ActionURL:         callbackBase + "/webhooks/call-action",
	})
	if err != nil {
		s.failAttempt(row, record, fmt.Sprintf("call placement failed: %v", err))
		return false
	}

	if err := s.callLogs.SetProviderCallID(row.ID, callID); err != nil {
		logrus.Errorf("Worker %s: failed to store provider call id on attempt %s: %v", campaignID, row.ID, err)
	}
	if err := s.records.SetProviderCallID(record.ID, callID); err != nil {
		logrus.Errorf("Worker %s: failed to store provider call id on record %s: %v", campaignID, record.ID, err)
	}
	if err := s.campaigns.IncrementCounters(campaignID, models.CounterDelta{Called: 1}); err != nil {
		logrus.Errorf("Worker %s: failed to increment called counter: %v", campaignID, err)
	}
	logrus.Infof("Worker %s: placed call %s to %s", campaignID, callID, row.PhoneNumber)
	return false
}

// checkExhausted completes the campaign once nothing is queued and nothing
// is still in flight. Conditional update so the reconciler's completion path
// can race this one safely.
func (s *DialerService) checkExhausted(campaignID string) bool {
	inFlight, err := s.callLogs.CountByStatuses(campaignID, models.CallStatusDialing, models.CallStatusRinging)
	if err != nil {
		logrus.Errorf("Worker %s: failed to count in-flight attempts: %v", campaignID, err)
		return false
	}
	if inFlight > 0 {
		return false
	}
	moved, err := s.campaigns.TransitionStatus(campaignID, models.CampaignStatusCompleted, models.CampaignStatusRunning)
	if err != nil {
		logrus.Errorf("Worker %s: failed to complete campaign: %v", campaignID, err)
		return false
	}
	if moved {
		logrus.Infof("Campaign %s completed: queue exhausted", campaignID)
	}
	return true
}

// failAttempt marks a row (and its record, when one exists) failed and
// advances the called+completed counters so one bad attempt never stalls
// the campaign
func (s *DialerService) failAttempt(row *models.CallLog, record *models.CallRecord, detail string) {
	logrus.Warnf("Attempt %s failed: %s", row.ID, detail)
	if _, err := s.callLogs.TransitionFrom(row.ID, models.CallStatusFailed, detail, models.CallStatusQueued, models.CallStatusDialing); err != nil {
		logrus.Errorf("Failed to mark attempt %s failed: %v", row.ID, err)
	}
	if record != nil {
		if _, err := s.records.TransitionFrom(record.ID, models.CallStatusFailed, detail, models.CallStatusInitiated); err != nil {
			logrus.Errorf("Failed to mark call record %s failed: %v", record.ID, err)
		}
	}
	if err := s.campaigns.IncrementCounters(row.CampaignID, models.CounterDelta{Called: 1, Completed: 1}); err != nil {
		logrus.Errorf("Failed to increment counters for campaign %s: %v", row.CampaignID, err)
	}
}

func (s *DialerService) blockAttempt(row *models.CallLog, record *models.CallRecord, verdict ComplianceVerdict) {
	status := models.CallStatusComplianceBlocked
	if verdict.Type == models.ViolationTypeDNC {
		status = models.CallStatusDNCBlocked
	}
	if _, err := s.callLogs.TransitionFrom(row.ID, status, verdict.Reason, models.CallStatusQueued); err != nil {
		logrus.Errorf("Failed to mark attempt %s blocked: %v", row.ID, err)
	}
	if _, err := s.records.TransitionFrom(record.ID, status, verdict.Reason, models.CallStatusInitiated); err != nil {
		logrus.Errorf("Failed to mark call record %s blocked: %v", record.ID, err)
	}
	if err := s.campaigns.IncrementCounters(row.CampaignID, models.CounterDelta{Called: 1, Completed: 1}); err != nil {
		logrus.Errorf("Failed to increment counters for campaign %s: %v", row.CampaignID, err)
	}
	logrus.Infof("Attempt %s blocked (%s): %s", row.ID, verdict.Type, verdict.Reason)
}

// WorkerInterval derives a campaign's tick interval from its pacing,
// floored at one second
func WorkerInterval(callsPerMinute int) time.Duration {
	if callsPerMinute <= 0 {
		callsPerMinute = 1
	}
	interval := time.Duration(60000/callsPerMinute) * time.Millisecond
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

type campaignWorker struct {
	campaignID string
	interval   time.Duration
	stop       chan struct{}
}

// DialerSupervisor owns the per-campaign worker goroutines. It is an
// injected instance, not package state, so tests can run isolated
// supervisors side by side.
type DialerSupervisor struct {
	dialer    *DialerService
	campaigns CampaignStore

	mu      sync.Mutex
	workers map[string]*campaignWorker
}

func NewDialerSupervisor(dialer *DialerService, campaigns CampaignStore) *DialerSupervisor {
	return &DialerSupervisor{
		dialer:    dialer,
		campaigns: campaigns,
		workers:   make(map[string]*campaignWorker),
	}
}

// StartWorker launches the tick loop for a campaign. Idempotent: a prior
// worker for the same campaign is stopped first. Refuses campaigns that are
// not in running status.
func (s *DialerSupervisor) StartWorker(campaignID string) error {
	campaign, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign == nil {
		return fmt.Errorf("campaign %s not found", campaignID)
	}
	if campaign.Status != models.CampaignStatusRunning {
		return fmt.Errorf("campaign %s is %s, not running", campaignID, campaign.Status)
	}

	w := &campaignWorker{
		campaignID: campaignID,
		interval:   WorkerInterval(campaign.CallsPerMinute),
		stop:       make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.workers[campaignID]; ok {
		close(prev.stop)
	}
	s.workers[campaignID] = w
	s.mu.Unlock()

	go s.run(w)
	logrus.Infof("Started worker for campaign %s at interval %s", campaignID, w.interval)
	return nil
}

// StopWorker cancels a campaign's worker. Stopping a campaign with no
// active worker is a no-op.
func (s *DialerSupervisor) StopWorker(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[campaignID]; ok {
		close(w.stop)
		delete(s.workers, campaignID)
		logrus.Infof("Stopped worker for campaign %s", campaignID)
	}
}

// StopAll cancels every worker (graceful shutdown)
func (s *DialerSupervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.workers {
		close(w.stop)
		delete(s.workers, id)
	}
}

// IsRunning reports whether a campaign currently has an active worker
func (s *DialerSupervisor) IsRunning(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[campaignID]
	return ok
}

// RecoverRunning starts a worker for every campaign persisted as running.
// Called once at boot so campaigns survive process restarts.
func (s *DialerSupervisor) RecoverRunning() error {
	campaigns, err := s.campaigns.GetByStatus(models.CampaignStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to load running campaigns: %w", err)
	}
	for _, c := range campaigns {
		if err := s.StartWorker(c.ID); err != nil {
			logrus.Errorf("Failed to recover worker for campaign %s: %v", c.ID, err)
		}
	}
	if len(campaigns) > 0 {
		logrus.Infof("Recovered %d running campaign worker(s)", len(campaigns))
	}
	return nil
}

// run is the worker loop. The tick body executes synchronously, so a slow
// tick delays the next fire instead of overlapping it.
func (s *DialerSupervisor) run(w *campaignWorker) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if s.safeTick(w.campaignID) {
				s.remove(w)
				return
			}
		}
	}
}

// safeTick guards the loop against a panicking tick so the timer keeps
// firing on subsequent ticks
func (s *DialerSupervisor) safeTick(campaignID string) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker tick panicked for campaign %s: %v", campaignID, r)
			logrus.Error(err)
			utils.CaptureError(err)
			done = false
		}
	}()
	return s.dialer.Tick(campaignID)
}

// remove drops a self-terminated worker from the registry, unless the
// supervisor already replaced it
func (s *DialerSupervisor) remove(w *campaignWorker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.workers[w.campaignID]; ok && current == w {
		delete(s.workers, w.campaignID)
	}
}
