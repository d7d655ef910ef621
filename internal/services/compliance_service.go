package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// ComplianceService evaluates whether a specific (contact, number) pair may
// be dialed right now. Checks short-circuit in order: DNC flag, calling
// hours, attempt ceilings. Every block is recorded as a violation before
// the verdict is returned.
type ComplianceService struct {
	compliance ComplianceStore
	records    CallRecordStore

	now func() time.Time // injectable for tests
}

func NewComplianceService(compliance ComplianceStore, records CallRecordStore) *ComplianceService {
	return &ComplianceService{
		compliance: compliance,
		records:    records,
		now:        time.Now,
	}
}

// ComplianceVerdict is the outcome of one evaluation
type ComplianceVerdict struct {
	Allowed bool
	Type    models.ViolationType
	Reason  string
}

// Evaluate returns whether the pair may be dialed. A nil error with
// Allowed=false means a compliance block, which is a normal outcome, not a
// failure.
func (s *ComplianceService) Evaluate(campaign *models.Campaign, contact *models.Contact, phoneNumber string) (ComplianceVerdict, error) {
	policy, err := s.compliance.GetPolicy()
	if err != nil {
		return ComplianceVerdict{}, fmt.Errorf("failed to load compliance policy: %w", err)
	}

	if policy.DNCEnabled && contact.DNC {
		return s.block(campaign, contact, phoneNumber, models.ViolationTypeDNC,
			"contact is flagged do-not-call")
	}

	if policy.TCPAEnabled {
		localNow := s.now().In(s.resolveLocation(contact.Timezone, policy.DefaultTimezone))
		inWindow, err := withinCallingHours(localNow, policy.CallingHoursStart, policy.CallingHoursEnd)
		if err != nil {
			return ComplianceVerdict{}, fmt.Errorf("invalid calling-hours window: %w", err)
		}
		if !inWindow {
			reason := fmt.Sprintf("current contact-local time %s is outside calling hours %s-%s",
				localNow.Format("15:04"), policy.CallingHoursStart, policy.CallingHoursEnd)
			return s.block(campaign, contact, phoneNumber, models.ViolationTypeTCPA, reason)
		}
	}

	if policy.TCPAEnabled || policy.FDCPAEnabled {
		verdict, blocked, err := s.checkCeilings(policy, campaign, contact, phoneNumber)
		if err != nil {
			return ComplianceVerdict{}, err
		}
		if blocked {
			return verdict, nil
		}
	}

	return ComplianceVerdict{Allowed: true}, nil
}

func (s *ComplianceService) checkCeilings(policy *models.CompliancePolicy, campaign *models.Campaign, contact *models.Contact, phoneNumber string) (ComplianceVerdict, bool, error) {
	loc := s.resolveLocation(contact.Timezone, policy.DefaultTimezone)
	localNow := s.now().In(loc)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	weekStart := dayStart.AddDate(0, 0, -daysSinceMonday(localNow.Weekday()))

	if policy.TCPAEnabled && policy.DailyAttemptLimit > 0 {
		count, err := s.records.CountAttemptsSince(contact.ID, phoneNumber, dayStart)
		if err != nil {
			return ComplianceVerdict{}, false, fmt.Errorf("failed to count daily attempts: %w", err)
		}
		if count >= int64(policy.DailyAttemptLimit) {
			v, err := s.block(campaign, contact, phoneNumber, models.ViolationTypeTCPA,
				fmt.Sprintf("daily attempt limit of %d reached for %s", policy.DailyAttemptLimit, phoneNumber))
			return v, true, err
		}
	}

	if policy.TCPAEnabled && policy.WeeklyAttemptLimit > 0 {
		count, err := s.records.CountAttemptsSince(contact.ID, phoneNumber, weekStart)
		if err != nil {
			return ComplianceVerdict{}, false, fmt.Errorf("failed to count weekly attempts: %w", err)
		}
		if count >= int64(policy.WeeklyAttemptLimit) {
			v, err := s.block(campaign, contact, phoneNumber, models.ViolationTypeTCPA,
				fmt.Sprintf("weekly attempt limit of %d reached for %s", policy.WeeklyAttemptLimit, phoneNumber))
			return v, true, err
		}
	}

	if policy.FDCPAEnabled && policy.TotalAttemptLimit > 0 {
		count, err := s.records.CountAttemptsTotal(contact.ID, phoneNumber)
		if err != nil {
			return ComplianceVerdict{}, false, fmt.Errorf("failed to count total attempts: %w", err)
		}
		if count >= int64(policy.TotalAttemptLimit) {
			v, err := s.block(campaign, contact, phoneNumber, models.ViolationTypeFDCPA,
				fmt.Sprintf("total attempt limit of %d reached for %s", policy.TotalAttemptLimit, phoneNumber))
			return v, true, err
		}
	}

	return ComplianceVerdict{}, false, nil
}

func (s *ComplianceService) block(campaign *models.Campaign, contact *models.Contact, phoneNumber string, t models.ViolationType, reason string) (ComplianceVerdict, error) {
	violation := &models.ComplianceViolation{
		PhoneNumber: phoneNumber,
		Type:        t,
		Reason:      reason,
		CampaignID:  &campaign.ID,
		ContactID:   &contact.ID,
		AgentID:     campaign.AgentID,
	}
	if err := s.compliance.CreateViolation(violation); err != nil {
		logrus.Errorf("Failed to record compliance violation for %s: %v", phoneNumber, err)
	}
	return ComplianceVerdict{Allowed: false, Type: t, Reason: reason}, nil
}

func (s *ComplianceService) resolveLocation(contactTZ, defaultTZ string) *time.Location {
	if contactTZ != "" {
		if loc, err := time.LoadLocation(contactTZ); err == nil {
			return loc
		}
		logrus.Warnf("Unknown contact timezone %q, falling back to %s", contactTZ, defaultTZ)
	}
	if loc, err := time.LoadLocation(defaultTZ); err == nil {
		return loc
	}
	return time.UTC
}

// withinCallingHours tests a contact-local time against an HH:MM window.
// An end before the start means the window spans midnight.
func withinCallingHours(localNow time.Time, start, end string) (bool, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return false, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false, err
	}
	nowMin := localNow.Hour()*60 + localNow.Minute()
	if endMin > startMin {
		return nowMin >= startMin && nowMin < endMin, nil
	}
	return nowMin >= startMin || nowMin < endMin, nil
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	return h*60 + m, nil
}

func daysSinceMonday(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}
