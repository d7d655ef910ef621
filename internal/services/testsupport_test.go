package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services/telephony"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

// In-memory store implementations so the engine services can be exercised
// without Postgres. They mirror the conditional-update semantics of the
// gorm repositories.

type memCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
}

func newMemCampaignStore() *memCampaignStore {
	return &memCampaignStore{campaigns: map[string]*models.Campaign{}}
}

func (s *memCampaignStore) Create(c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusPending
	}
	c.CreatedAt = time.Now()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *memCampaignStore) GetByID(id string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCampaignStore) GetByName(name string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCampaignStore) GetAll() ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memCampaignStore) GetByAgentID(agentID string) ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for _, c := range s.campaigns {
		if c.AgentID != nil && *c.AgentID == agentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memCampaignStore) GetByStatus(status models.CampaignStatus) ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for _, c := range s.campaigns {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memCampaignStore) TransitionStatus(id string, to models.CampaignStatus, from ...models.CampaignStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal campaign transition %s -> %s", f, to)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *memCampaignStore) SetFailed(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil
	}
	if !c.Status.IsTerminal() {
		c.Status = models.CampaignStatusFailed
		c.ErrorMessage = message
	}
	return nil
}

func (s *memCampaignStore) SetExpansionCounts(id string, totalContacts, queued int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.TotalContacts = totalContacts
		c.ContactsQueued = queued
	}
	return nil
}

func (s *memCampaignStore) IncrementCounters(id string, d models.CounterDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.ContactsCalled += d.Called
		c.ContactsAnswered += d.Answered
		c.ContactsCompleted += d.Completed
	}
	return nil
}

func (s *memCampaignStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.campaigns, id)
	return nil
}

type memCallLogStore struct {
	mu       sync.Mutex
	rows     []*models.CallLog
	contacts *memContactStore
	seq      int
}

func newMemCallLogStore(contacts *memContactStore) *memCallLogStore {
	return &memCallLogStore{contacts: contacts}
}

func (s *memCallLogStore) find(id string) *models.CallLog {
	for _, r := range s.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *memCallLogStore) BulkInsert(rows []*models.CallLog) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, row := range rows {
		dup := false
		for _, existing := range s.rows {
			if existing.CampaignID == row.CampaignID &&
				existing.ContactID == row.ContactID &&
				existing.PhoneNumber == row.PhoneNumber {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		cp := *row
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		s.seq++
		cp.CreatedAt = time.Unix(int64(s.seq), 0)
		s.rows = append(s.rows, &cp)
		inserted++
	}
	return inserted, nil
}

func (s *memCallLogStore) ExistingPairs(campaignID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	for _, r := range s.rows {
		if r.CampaignID == campaignID {
			out[utils.PairKey(r.ContactID, r.PhoneNumber)] = struct{}{}
		}
	}
	return out, nil
}

func (s *memCallLogStore) NextQueued(campaignID string) (*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.CallLog
	for _, r := range s.rows {
		if r.CampaignID != campaignID || r.Status != models.CallStatusQueued {
			continue
		}
		if oldest == nil || r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	if s.contacts != nil {
		if contact := s.contacts.get(cp.ContactID); contact != nil {
			cp.Contact = *contact
		}
	}
	return &cp, nil
}

func (s *memCallLogStore) CountByStatuses(campaignID string, statuses ...models.CallStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.rows {
		if r.CampaignID != campaignID {
			continue
		}
		for _, st := range statuses {
			if r.Status == st {
				count++
				break
			}
		}
	}
	return count, nil
}

func (s *memCallLogStore) GetByProviderCallID(providerCallID string) (*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ProviderCallID == providerCallID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCallLogStore) MarkDialing(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.Status = models.CallStatusDialing
		r.AttemptCount++
		r.LastAttemptAt = &at
	}
	return nil
}

func (s *memCallLogStore) SetProviderCallID(id, providerCallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.ProviderCallID = providerCallID
	}
	return nil
}

func (s *memCallLogStore) TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal call log transition %s -> %s", f, to)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(id)
	if r == nil {
		return false, nil
	}
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			if detail != "" {
				r.Detail = detail
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *memCallLogStore) SetDuration(id string, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.Duration = seconds
	}
	return nil
}

func (s *memCallLogStore) SetDetail(id, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.Detail = detail
	}
	return nil
}

func (s *memCallLogStore) List(campaignID string, opts models.CallLogListOptions) ([]*models.CallLog, int64, error) {
	rows, err := s.GetAllByCampaign(campaignID)
	if err != nil {
		return nil, 0, err
	}
	filtered := rows[:0]
	for _, r := range rows {
		if opts.Status != "" && string(r.Status) != opts.Status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, int64(len(filtered)), nil
}

func (s *memCallLogStore) GetAllByCampaign(campaignID string) ([]*models.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CallLog
	for _, r := range s.rows {
		if r.CampaignID == campaignID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memCallLogStore) DeleteByCampaignID(campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.CampaignID != campaignID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

// byStatus returns the campaign's rows in a given status (test helper)
func (s *memCallLogStore) byStatus(campaignID string, status models.CallStatus) []*models.CallLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CallLog
	for _, r := range s.rows {
		if r.CampaignID == campaignID && r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

type memCallRecordStore struct {
	mu      sync.Mutex
	records []*models.CallRecord
	seq     int
}

func newMemCallRecordStore() *memCallRecordStore {
	return &memCallRecordStore{}
}

func (s *memCallRecordStore) find(id string) *models.CallRecord {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *memCallRecordStore) Create(record *models.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.seq++
	record.CreatedAt = time.Unix(int64(s.seq), 0)
	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

func (s *memCallRecordStore) GetByProviderCallID(providerCallID string) (*models.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ProviderCallID == providerCallID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memCallRecordStore) SetProviderCallID(id, providerCallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.ProviderCallID = providerCallID
		r.Status = models.CallStatusDialing
	}
	return nil
}

func (s *memCallRecordStore) TransitionFrom(id string, to models.CallStatus, detail string, from ...models.CallStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return false, fmt.Errorf("illegal call record transition %s -> %s", f, to)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(id)
	if r == nil {
		return false, nil
	}
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			if detail != "" {
				r.Detail = detail
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *memCallRecordStore) SetCallResult(id string, durationSeconds *int, recordingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		if durationSeconds != nil {
			r.DurationSeconds = *durationSeconds
		}
		if recordingURL != "" {
			r.RecordingURL = recordingURL
		}
	}
	return nil
}

func (s *memCallRecordStore) SetBilling(id string, cost float64, direction models.CallDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.Cost = cost
		if direction != "" {
			r.Direction = direction
		}
	}
	return nil
}

func (s *memCallRecordStore) SetRawPayload(id string, payload models.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(id); r != nil {
		r.RawPayload = payload
	}
	return nil
}

func (s *memCallRecordStore) CountAttemptsSince(contactID, toNumber string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.records {
		if r.ContactID == contactID && r.ToNumber == toNumber && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memCallRecordStore) CountAttemptsTotal(contactID, toNumber string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.records {
		if r.ContactID == contactID && r.ToNumber == toNumber {
			count++
		}
	}
	return count, nil
}

// addAttempt seeds a prior call record at a given time (test helper)
func (s *memCallRecordStore) addAttempt(contactID, toNumber string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, &models.CallRecord{
		ID:        uuid.NewString(),
		ContactID: contactID,
		ToNumber:  toNumber,
		Direction: models.CallDirectionOutbound,
		Status:    models.CallStatusCompleted,
		CreatedAt: at,
	})
}

type memContactStore struct {
	mu       sync.Mutex
	contacts []*models.Contact
}

func newMemContactStore() *memContactStore {
	return &memContactStore{}
}

func (s *memContactStore) add(c *models.Contact) *models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Unix(int64(len(s.contacts)+1), 0)
	cp := *c
	s.contacts = append(s.contacts, &cp)
	return c
}

func (s *memContactStore) get(id string) *models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if c.ID == id {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (s *memContactStore) GetByID(id string) (*models.Contact, error) {
	return s.get(id), nil
}

func (s *memContactStore) GetByGroupPaged(groupID string, offset, limit int) ([]*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var group []*models.Contact
	for _, c := range s.contacts {
		if c.GroupID == groupID {
			cp := *c
			group = append(group, &cp)
		}
	}
	if offset >= len(group) {
		return nil, nil
	}
	end := offset + limit
	if end > len(group) {
		end = len(group)
	}
	return group[offset:end], nil
}

func (s *memContactStore) CountByGroup(groupID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.contacts {
		if c.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

type memDNCStore struct {
	mu      sync.Mutex
	numbers map[string]string // number -> source
}

func newMemDNCStore(numbers ...string) *memDNCStore {
	s := &memDNCStore{numbers: map[string]string{}}
	for _, n := range numbers {
		s.numbers[n] = models.DNCSourceManual
	}
	return s
}

func (s *memDNCStore) Add(phoneNumber, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[phoneNumber] = source
	return nil
}

func (s *memDNCStore) Remove(phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.numbers, phoneNumber)
	return nil
}

func (s *memDNCStore) Contains(phoneNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.numbers[phoneNumber]
	return ok, nil
}

func (s *memDNCStore) AllNumbers() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.numbers))
	for n := range s.numbers {
		out[n] = struct{}{}
	}
	return out, nil
}

func (s *memDNCStore) List(offset, limit int) ([]*models.DNCEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []*models.DNCEntry
	for n, src := range s.numbers {
		entries = append(entries, &models.DNCEntry{PhoneNumber: n, Source: src})
	}
	return entries, int64(len(entries)), nil
}

type memComplianceStore struct {
	mu         sync.Mutex
	policy     *models.CompliancePolicy
	violations []*models.ComplianceViolation
}

func newMemComplianceStore() *memComplianceStore {
	return &memComplianceStore{
		policy: &models.CompliancePolicy{
			ID:                 uuid.NewString(),
			DailyAttemptLimit:  3,
			WeeklyAttemptLimit: 7,
			TotalAttemptLimit:  10,
			CallingHoursStart:  "08:00",
			CallingHoursEnd:    "21:00",
			DefaultTimezone:    "America/New_York",
			TCPAEnabled:        true,
			FDCPAEnabled:       true,
			DNCEnabled:         true,
		},
	}
}

func (s *memComplianceStore) GetPolicy() (*models.CompliancePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.policy
	return &cp, nil
}

func (s *memComplianceStore) UpdatePolicy(req *models.UpdateCompliancePolicyRequest) (*models.CompliancePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.DailyAttemptLimit = req.DailyAttemptLimit
	s.policy.WeeklyAttemptLimit = req.WeeklyAttemptLimit
	s.policy.TotalAttemptLimit = req.TotalAttemptLimit
	s.policy.CallingHoursStart = req.CallingHoursStart
	s.policy.CallingHoursEnd = req.CallingHoursEnd
	s.policy.DefaultTimezone = req.DefaultTimezone
	s.policy.TCPAEnabled = *req.TCPAEnabled
	s.policy.FDCPAEnabled = *req.FDCPAEnabled
	s.policy.DNCEnabled = *req.DNCEnabled
	cp := *s.policy
	return &cp, nil
}

func (s *memComplianceStore) CreateViolation(v *models.ComplianceViolation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now()
	cp := *v
	s.violations = append(s.violations, &cp)
	return nil
}

func (s *memComplianceStore) ListViolations(violationType string, offset, limit int) ([]*models.ComplianceViolation, int64, error) {
	all, err := s.AllViolations()
	if err != nil {
		return nil, 0, err
	}
	if violationType != "" {
		filtered := all[:0]
		for _, v := range all {
			if string(v.Type) == violationType {
				filtered = append(filtered, v)
			}
		}
		all = filtered
	}
	return all, int64(len(all)), nil
}

func (s *memComplianceStore) AllViolations() ([]*models.ComplianceViolation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ComplianceViolation, 0, len(s.violations))
	for _, v := range s.violations {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

type memAgentStore struct {
	mu     sync.Mutex
	agents map[string]*models.Agent
}

func newMemAgentStore() *memAgentStore {
	return &memAgentStore{agents: map[string]*models.Agent{}}
}

func (s *memAgentStore) add(name string) *models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &models.Agent{ID: uuid.NewString(), Name: name, IsActive: true}
	s.agents[a.ID] = a
	return a
}

func (s *memAgentStore) GetByID(id string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// fakeTelephonyClient records placed calls and serves canned call info
type fakeTelephonyClient struct {
	mu         sync.Mutex
	placed     []telephony.PlaceCallRequest
	nextCallID int
	placeErr   error
	fetchInfo  telephony.CallInfo
	fetchErr   error
}

func (f *fakeTelephonyClient) PlaceCall(_ context.Context, req telephony.PlaceCallRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.nextCallID++
	f.placed = append(f.placed, req)
	return fmt.Sprintf("CA%06d", f.nextCallID), nil
}

func (f *fakeTelephonyClient) FetchCall(_ context.Context, callID string) (telephony.CallInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return telephony.CallInfo{}, f.fetchErr
	}
	info := f.fetchInfo
	info.CallID = callID
	return info, nil
}

func (f *fakeTelephonyClient) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

type fakeProviderSource struct {
	client telephony.Client
	err    error
}

func (f *fakeProviderSource) Client() (telephony.Client, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.client, "https://dialer.test", nil
}

// syncPublisher runs expansions inline so tests stay deterministic
type syncPublisher struct {
	expander *ExpanderService
}

func (p *syncPublisher) PublishExpansion(campaignID string) error {
	return p.expander.Expand(campaignID)
}
