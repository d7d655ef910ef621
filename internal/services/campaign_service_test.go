package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

type campaignServiceFixture struct {
	*dialerFixture
	service *CampaignService
	agents  *memAgentStore
}

func newCampaignServiceFixture(t *testing.T) *campaignServiceFixture {
	t.Helper()
	f := newDialerFixture(t)
	agents := newMemAgentStore()
	supervisor := NewDialerSupervisor(f.dialer, f.campaigns)
	expander := NewExpanderService(f.campaigns, f.contacts, f.callLogs, newMemDNCStore())
	return &campaignServiceFixture{
		dialerFixture: f,
		service:       NewCampaignService(f.campaigns, f.callLogs, agents, supervisor, &syncPublisher{expander: expander}),
		agents:        agents,
	}
}

func (f *campaignServiceFixture) seedCampaignFor(t *testing.T, name string, agentID *string) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Name:           name,
		ContactGroupID: "group-1",
		AgentID:        agentID,
		CallerNumbers:  []string{"+15550000001"},
		CallsPerMinute: 10,
		Status:         models.CampaignStatusQueued,
	}
	require.NoError(t, f.campaigns.Create(campaign))
	return campaign
}

func TestGetAuthorizedAdminSeesEverything(t *testing.T) {
	f := newCampaignServiceFixture(t)
	agent := f.agents.add("Alex")
	campaign := f.seedCampaignFor(t, "assigned", &agent.ID)
	unassigned := f.seedCampaignFor(t, "unassigned", nil)

	got, err := f.service.GetAuthorized(campaign.ID, "admin", "some-admin")
	require.NoError(t, err)
	assert.Equal(t, campaign.ID, got.ID)

	got, err = f.service.GetAuthorized(unassigned.ID, "admin", "some-admin")
	require.NoError(t, err)
	assert.Equal(t, unassigned.ID, got.ID)
}

func TestGetAuthorizedAgentLimitedToOwnCampaigns(t *testing.T) {
	f := newCampaignServiceFixture(t)
	agent := f.agents.add("Alex")
	other := f.agents.add("Sam")

	mine := f.seedCampaignFor(t, "mine", &agent.ID)
	foreign := f.seedCampaignFor(t, "foreign", &other.ID)
	unassigned := f.seedCampaignFor(t, "unassigned", nil)

	got, err := f.service.GetAuthorized(mine.ID, "agent", agent.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// another agent's campaign and an unassigned one look like they do
	// not exist
	_, err = f.service.GetAuthorized(foreign.ID, "agent", agent.ID)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
	_, err = f.service.GetAuthorized(unassigned.ID, "agent", agent.ID)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestListLogsAgentLimitedToOwnCampaigns(t *testing.T) {
	f := newCampaignServiceFixture(t)
	agent := f.agents.add("Alex")
	other := f.agents.add("Sam")
	foreign := f.seedCampaignFor(t, "foreign", &other.ID)

	contact := f.contacts.add(&models.Contact{GroupID: "group-1", Phone: "+15551230001"})
	n, err := f.callLogs.BulkInsert([]*models.CallLog{{
		CampaignID:   foreign.ID,
		ContactID:    contact.ID,
		PhoneNumber:  "+15551230001",
		CallerNumber: "+15550000001",
		Status:       models.CallStatusQueued,
	}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	opts := models.CallLogListOptions{Page: 1, PageSize: 20}

	_, _, err = f.service.ListLogs(foreign.ID, "agent", agent.ID, opts)
	assert.ErrorIs(t, err, ErrCampaignNotFound)

	rows, total, err := f.service.ListLogs(foreign.ID, "agent", other.ID, opts)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(1), total)

	rows, total, err = f.service.ListLogs(foreign.ID, "admin", "some-admin", opts)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(1), total)
}
