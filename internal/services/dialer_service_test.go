package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type dialerFixture struct {
	dialer     *DialerService
	campaigns  *memCampaignStore
	contacts   *memContactStore
	callLogs   *memCallLogStore
	records    *memCallRecordStore
	compliance *memComplianceStore
	client     *fakeTelephonyClient
	provider   *fakeProviderSource
}

func newDialerFixture(t *testing.T) *dialerFixture {
	t.Helper()
	campaigns := newMemCampaignStore()
	contacts := newMemContactStore()
	callLogs := newMemCallLogStore(contacts)
	records := newMemCallRecordStore()
	compliance := newMemComplianceStore()
	client := &fakeTelephonyClient{}
	provider := &fakeProviderSource{client: client}

	complianceService := NewComplianceService(compliance, records)
	// pin the clock inside the calling-hours window
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	complianceService.now = func() time.Time { return time.Date(2026, 8, 26, 14, 0, 0, 0, loc) }

	return &dialerFixture{
		dialer:     NewDialerService(campaigns, callLogs, records, complianceService, provider),
		campaigns:  campaigns,
		contacts:   contacts,
		callLogs:   callLogs,
		records:    records,
		compliance: compliance,
		client:     client,
		provider:   provider,
	}
}

func (f *dialerFixture) seedRunningCampaign(t *testing.T) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Name:           "dialer test",
		ContactGroupID: "group-1",
		CallerNumbers:  []string{"+15550000001"},
		CallsPerMinute: 30,
		Status:         models.CampaignStatusRunning,
	}
	require.NoError(t, f.campaigns.Create(campaign))
	return campaign
}

func (f *dialerFixture) seedQueuedAttempt(t *testing.T, campaignID string, contact *models.Contact) *models.CallLog {
	t.Helper()
	row := &models.CallLog{
		CampaignID:   campaignID,
		ContactID:    contact.ID,
		PhoneNumber:  "+15551230001",
		CallerNumber: "+15550000001",
		Status:       models.CallStatusQueued,
	}
	n, err := f.callLogs.BulkInsert([]*models.CallLog{row})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rows, err := f.callLogs.GetAllByCampaign(campaignID)
	require.NoError(t, err)
	return rows[len(rows)-1]
}

func TestTickPlacesCallForQueuedAttempt(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)
	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001", Timezone: "America/New_York"})
	f.seedQueuedAttempt(t, campaign.ID, contact)

	done := f.dialer.Tick(campaign.ID)
	assert.False(t, done)
	assert.Equal(t, 1, f.client.placedCount())

	rows := f.callLogs.byStatus(campaign.ID, models.CallStatusDialing)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ProviderCallID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastAttemptAt)

	record, err := f.records.GetByProviderCallID(rows[0].ProviderCallID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.CallStatusDialing, record.Status)
	assert.Equal(t, "+15551230001", record.ToNumber)
	assert.Equal(t, "+15550000001", record.FromNumber)

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ContactsCalled)
	assert.Equal(t, 0, updated.ContactsCompleted)
}

func TestTickStopsWhenCampaignNotRunning(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)
	_, err := f.campaigns.TransitionStatus(campaign.ID, models.CampaignStatusPaused, models.CampaignStatusRunning)
	require.NoError(t, err)

	assert.True(t, f.dialer.Tick(campaign.ID))
	assert.Equal(t, 0, f.client.placedCount())
}

func TestTickCompletesExhaustedCampaign(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)

	done := f.dialer.Tick(campaign.ID)
	assert.True(t, done)

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, updated.Status)
}

func TestTickWaitsForInFlightCalls(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)
	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001", Timezone: "America/New_York"})
	f.seedQueuedAttempt(t, campaign.ID, contact)

	// first tick dials, queue is now empty but a call is in flight
	require.False(t, f.dialer.Tick(campaign.ID))
	done := f.dialer.Tick(campaign.ID)
	assert.False(t, done)

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRunning, updated.Status)
}

func TestTickFailsAttemptWithDanglingContact(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)
	ghost := &models.Contact{ID: "ghost", GroupID: "group-1", Phone: "+15551230001"}
	f.seedQueuedAttempt(t, campaign.ID, ghost)

	require.False(t, f.dialer.Tick(campaign.ID))
	assert.Equal(t, 0, f.client.placedCount())

	failed := f.callLogs.byStatus(campaign.ID, models.CallStatusFailed)
	require.Len(t, failed, 1)

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ContactsCalled)
	assert.Equal(t, 1, updated.ContactsCompleted)
}

func TestTickBlocksDNCFlaggedContactWithoutDialing(t *testing.T) {
	f := newDialerFixture(t)
	campaign := f.seedRunningCampaign(t)
	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001", Timezone: "America/New_York", DNC: true})
	f.seedQueuedAttempt(t, campaign.ID, contact)

	require.False(t, f.dialer.Tick(campaign.ID))
	assert.Equal(t, 0, f.client.placedCount())

	blocked := f.callLogs.byStatus(campaign.ID, models.CallStatusDNCBlocked)
	require.Len(t, blocked, 1)
	assert.NotEmpty(t, blocked[0].Detail)

	violations, err := f.compliance.AllViolations()
	require.NoError(t, err)
	assert.Len(t, violations, 1)

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ContactsCalled)
	assert.Equal(t, 1, updated.ContactsCompleted)
}

func TestTickFailsAttemptWhenProviderUnavailable(t *testing.T) {
	f := newDialerFixture(t)
	f.provider.err = errors.New("no credentials configured")
	campaign := f.seedRunningCampaign(t)
	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001", Timezone: "America/New_York"})
	f.seedQueuedAttempt(t, campaign.ID, contact)

	require.False(t, f.dialer.Tick(campaign.ID))

	failed := f.callLogs.byStatus(campaign.ID, models.CallStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Detail, "provider unavailable")

	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ContactsCalled)
	assert.Equal(t, 1, updated.ContactsCompleted)
}

func TestTickFailsAttemptWhenPlaceCallErrors(t *testing.T) {
	f := newDialerFixture(t)
	f.client.placeErr = errors.New("provider rejected call")
	campaign := f.seedRunningCampaign(t)
	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001", Timezone: "America/New_York"})
	f.seedQueuedAttempt(t, campaign.ID, contact)

	require.False(t, f.dialer.Tick(campaign.ID))

	failed := f.callLogs.byStatus(campaign.ID, models.CallStatusFailed)
	require.Len(t, failed, 1)
	// the failed placement still counted as an attempt
	assert.Equal(t, 1, failed[0].AttemptCount)

	// one bad attempt never stalls the campaign
	updated, err := f.campaigns.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ContactsCalled)
	assert.Equal(t, 1, updated.ContactsCompleted)
}

func TestWorkerInterval(t *testing.T) {
	assert.Equal(t, 6*time.Second, WorkerInterval(10))
	assert.Equal(t, time.Second, WorkerInterval(60))
	// pacing above 60 floors at one second
	assert.Equal(t, time.Second, WorkerInterval(120))
	assert.Equal(t, time.Minute, WorkerInterval(1))
}

func TestSupervisorRefusesNonRunningCampaign(t *testing.T) {
	f := newDialerFixture(t)
	supervisor := NewDialerSupervisor(f.dialer, f.campaigns)

	campaign := &models.Campaign{
		Name:           "paused campaign",
		ContactGroupID: "group-1",
		CallerNumbers:  []string{"+15550000001"},
		CallsPerMinute: 10,
		Status:         models.CampaignStatusPaused,
	}
	require.NoError(t, f.campaigns.Create(campaign))

	err := supervisor.StartWorker(campaign.ID)
	require.Error(t, err)
	assert.False(t, supervisor.IsRunning(campaign.ID))
}

func TestSupervisorStartStopLifecycle(t *testing.T) {
	f := newDialerFixture(t)
	supervisor := NewDialerSupervisor(f.dialer, f.campaigns)
	campaign := f.seedRunningCampaign(t)

	require.NoError(t, supervisor.StartWorker(campaign.ID))
	assert.True(t, supervisor.IsRunning(campaign.ID))

	// idempotent restart
	require.NoError(t, supervisor.StartWorker(campaign.ID))
	assert.True(t, supervisor.IsRunning(campaign.ID))

	supervisor.StopWorker(campaign.ID)
	assert.False(t, supervisor.IsRunning(campaign.ID))

	// stopping again is a no-op
	supervisor.StopWorker(campaign.ID)
}

func TestSupervisorInstancesAreIsolated(t *testing.T) {
	f := newDialerFixture(t)
	supervisorA := NewDialerSupervisor(f.dialer, f.campaigns)
	supervisorB := NewDialerSupervisor(f.dialer, f.campaigns)
	campaign := f.seedRunningCampaign(t)

	require.NoError(t, supervisorA.StartWorker(campaign.ID))
	assert.True(t, supervisorA.IsRunning(campaign.ID))
	assert.False(t, supervisorB.IsRunning(campaign.ID))

	supervisorA.StopAll()
	assert.False(t, supervisorA.IsRunning(campaign.ID))
}

func TestSupervisorRecoverRunning(t *testing.T) {
	f := newDialerFixture(t)
	supervisor := NewDialerSupervisor(f.dialer, f.campaigns)

	running := f.seedRunningCampaign(t)
	paused := &models.Campaign{
		Name:           "paused",
		ContactGroupID: "group-2",
		CallerNumbers:  []string{"+15550000002"},
		CallsPerMinute: 10,
		Status:         models.CampaignStatusPaused,
	}
	require.NoError(t, f.campaigns.Create(paused))

	require.NoError(t, supervisor.RecoverRunning())
	assert.True(t, supervisor.IsRunning(running.ID))
	assert.False(t, supervisor.IsRunning(paused.ID))
	supervisor.StopAll()
}
