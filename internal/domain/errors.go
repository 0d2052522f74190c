package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds means the conditional balance deduction matched
	// zero rows: the charge was not applied, not even partially.
	ErrInsufficientFunds = errors.New("insufficient credit balance")

	// ErrRateLimited means the sender number's fixed window is exhausted.
	// Distinct from ErrInsufficientFunds so callers can switch numbers.
	ErrRateLimited = errors.New("sender number rate limit exceeded")

	// ErrNoPricing means neither an org override nor a default price row is
	// configured. Sending fails rather than defaulting to zero cost.
	ErrNoPricing = errors.New("no send pricing configured")

	ErrCampaignNotFound = errors.New("campaign not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrNoSenderNumber   = errors.New("no verified sender number available")
)

// InvalidTransitionError rejects a campaign lifecycle change that is not in
// the transition table, naming both sides so the caller can explain it.
type InvalidTransitionError struct {
	Current   CampaignStatus
	Requested CampaignStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition campaign from %q to %q", e.Current, e.Requested)
}

// GatewayError carries the provider's error detail for a failed send
// attempt. The attempt is terminal; the charge for it stands.
type GatewayError struct {
	Code   string
	Detail string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway send failed (%s): %s", e.Code, e.Detail)
	}
	return "gateway send failed: " + e.Detail
}
