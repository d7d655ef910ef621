package telephony

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no provider credentials are stored yet
var ErrNotConfigured = errors.New("telephony provider is not configured")

// PlaceCallRequest carries everything needed to originate one outbound call
type PlaceCallRequest struct {
	From string
	To   string

	// StatusCallbackURL receives lifecycle callbacks for the call
	StatusCallbackURL string

	// ActionURL receives IVR keypad input collected during the call
	ActionURL string
}

// CallInfo is the provider's authoritative view of a finished call,
// fetched after the terminal callback arrives
type CallInfo struct {
	CallID    string
	Status    string
	Duration  int
	Cost      float64
	Direction string
}

// Client is the telephony provider surface the dialer depends on. The
// production implementation talks to the provider's REST API; tests swap
// in a fake.
type Client interface {
	// PlaceCall originates an outbound call and returns the provider's
	// call identifier
	PlaceCall(ctx context.Context, req PlaceCallRequest) (string, error)

	// FetchCall retrieves the provider's record of a call by identifier
	FetchCall(ctx context.Context, callID string) (CallInfo, error)
}
