package notification

import (
	"context"

	"github.com/prepally/prepally-backend/pkg/observability"
)

// ConsentState is the owner's stored communication preference.
type ConsentState struct {
	TransactionalOptIn bool `json:"transactional_opt_in"`
}

// ConsentService looks up an owner's consent state. Implementations may fail;
// the policy engine decides what a lookup failure means.
type ConsentService interface {
	GetConsentState(ctx context.Context, ownerID string) (ConsentState, error)
}

// Decision is the result of a policy check. A disallowed send is a deliberate
// skip, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// PolicyEngine decides per owner and category whether a send is permitted.
// It has no side effects and is safe to call repeatedly.
type PolicyEngine struct {
	consent ConsentService
	logger  *observability.Logger
}

func NewPolicyEngine(consent ConsentService, logger *observability.Logger) *PolicyEngine {
	return &PolicyEngine{consent: consent, logger: logger}
}

// CanSend applies the consent policy for one owner and category.
//
// Security-exempt and must-send categories are allowed unconditionally and
// never hit the consent service, so password resets and receipts cannot be
// dropped by a consent outage. For everything else the policy fails open on a
// lookup failure and fails closed on an explicit opt-out. Fail-open here is a
// deliberate compliance posture: message loss must never be caused by an
// unrelated service being down.
func (e *PolicyEngine) CanSend(ctx context.Context, ownerID string, category Category) Decision {
	spec, err := category.Spec()
	if err != nil {
		return Decision{Allowed: false, Reason: "unknown category"}
	}

	if spec.SecurityExempt || spec.MustSend {
		return Decision{Allowed: true}
	}

	state, err := e.consent.GetConsentState(ctx, ownerID)
	if err != nil {
		e.logger.Warn("consent lookup failed, allowing send",
			"owner_id", ownerID,
			"category", string(category),
			"error", err)
		return Decision{Allowed: true, Reason: "consent service unavailable"}
	}

	if !state.TransactionalOptIn {
		return Decision{Allowed: false, Reason: "opted out"}
	}

	return Decision{Allowed: true}
}
