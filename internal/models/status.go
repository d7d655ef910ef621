package models

// CampaignStatus is the closed set of campaign lifecycle states
type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"   // attempt expansion in progress
	CampaignStatusQueued    CampaignStatus = "queued"    // expansion done, no calls placed yet
	CampaignStatusRunning   CampaignStatus = "running"   // dialer worker active
	CampaignStatusPaused    CampaignStatus = "paused"    // worker stopped, calls in flight still reconcile
	CampaignStatusCompleted CampaignStatus = "completed" // terminal
	CampaignStatusFailed    CampaignStatus = "failed"    // terminal
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusPending: {CampaignStatusQueued, CampaignStatusFailed},
	CampaignStatusQueued:  {CampaignStatusRunning, CampaignStatusFailed},
	CampaignStatusRunning: {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed},
	CampaignStatusPaused:  {CampaignStatusRunning, CampaignStatusFailed},
	// completed and failed are terminal
}

// IsTerminal reports whether no further worker activity may occur
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusFailed
}

// CanTransitionTo validates a campaign status change
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, t := range campaignTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known campaign status
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusPending, CampaignStatusQueued, CampaignStatusRunning,
		CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed:
		return true
	}
	return false
}

// CallStatus is the shared status vocabulary of call logs and call records
type CallStatus string

const (
	CallStatusQueued            CallStatus = "queued"
	CallStatusInitiated         CallStatus = "initiated" // call record created, provider not yet contacted
	CallStatusDialing           CallStatus = "dialing"
	CallStatusRinging           CallStatus = "ringing"
	CallStatusAnswered          CallStatus = "answered"
	CallStatusCompleted         CallStatus = "completed"
	CallStatusNoAnswer          CallStatus = "no_answer"
	CallStatusBusy              CallStatus = "busy"
	CallStatusFailed            CallStatus = "failed"
	CallStatusCanceled          CallStatus = "canceled"
	CallStatusDNCBlocked        CallStatus = "dnc_blocked"
	CallStatusComplianceBlocked CallStatus = "compliance_blocked"
)

// IsTerminal reports whether a call log row has left the worker's queue.
// Everything except queued/dialing counts toward contacts_completed.
// An answered row is terminal for counter purposes but may still be refined
// to completed or no_answer by a later provider callback.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusQueued, CallStatusDialing, CallStatusInitiated, CallStatusRinging:
		return false
	}
	return true
}

var callTransitions = map[CallStatus][]CallStatus{
	CallStatusQueued: {
		CallStatusDialing, CallStatusFailed, CallStatusCanceled,
		CallStatusDNCBlocked, CallStatusComplianceBlocked,
	},
	CallStatusInitiated: {
		CallStatusDialing, CallStatusRinging, CallStatusAnswered,
		CallStatusCompleted, CallStatusNoAnswer, CallStatusBusy,
		CallStatusFailed, CallStatusCanceled,
		CallStatusDNCBlocked, CallStatusComplianceBlocked,
	},
	CallStatusDialing: {
		CallStatusRinging, CallStatusAnswered, CallStatusCompleted,
		CallStatusNoAnswer, CallStatusBusy, CallStatusFailed, CallStatusCanceled,
	},
	CallStatusRinging: {
		CallStatusAnswered, CallStatusCompleted, CallStatusNoAnswer,
		CallStatusBusy, CallStatusFailed, CallStatusCanceled,
	},
	CallStatusAnswered: {
		CallStatusCompleted, CallStatusNoAnswer, CallStatusFailed, CallStatusCanceled,
	},
	// remaining statuses are final
}

// CanTransitionTo validates a call status change
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	for _, t := range callTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ViolationType classifies a compliance block
type ViolationType string

const (
	ViolationTypeDNC   ViolationType = "DNC"
	ViolationTypeTCPA  ViolationType = "TCPA"
	ViolationTypeFDCPA ViolationType = "FDCPA"
)

// CallDirection classifies a call record
type CallDirection string

const (
	CallDirectionOutbound CallDirection = "outbound"
	CallDirectionInbound  CallDirection = "inbound"
)
