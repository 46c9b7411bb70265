package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/prepally/prepally-backend/pkg/observability"
)

func TestPolicyEngine_CanSend(t *testing.T) {
	optedOut := func(ctx context.Context, ownerID string) (ConsentState, error) {
		return ConsentState{TransactionalOptIn: false}, nil
	}
	optedIn := func(ctx context.Context, ownerID string) (ConsentState, error) {
		return ConsentState{TransactionalOptIn: true}, nil
	}
	unavailable := func(ctx context.Context, ownerID string) (ConsentState, error) {
		return ConsentState{}, errors.New("dial tcp: connection refused")
	}

	tests := []struct {
		name        string
		category    Category
		consent     func(ctx context.Context, ownerID string) (ConsentState, error)
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "opted in allows consented category",
			category:    CategoryInterviewReminder,
			consent:     optedIn,
			wantAllowed: true,
		},
		{
			name:        "opt-out denies consented category",
			category:    CategoryInterviewReminder,
			consent:     optedOut,
			wantAllowed: false,
			wantReason:  "opted out",
		},
		{
			name:        "security-exempt bypasses denied consent",
			category:    CategoryPasswordReset,
			consent:     optedOut,
			wantAllowed: true,
		},
		{
			name:        "must-send bypasses denied consent",
			category:    CategoryPurchaseReceipt,
			consent:     optedOut,
			wantAllowed: true,
		},
		{
			name:        "consent outage fails open",
			category:    CategoryLowBalanceWarning,
			consent:     unavailable,
			wantAllowed: true,
			wantReason:  "consent service unavailable",
		},
		{
			name:        "unknown category is denied",
			category:    Category("carrier-pigeon"),
			consent:     optedIn,
			wantAllowed: false,
			wantReason:  "unknown category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewPolicyEngine(
				&MockConsentService{GetConsentStateFunc: tt.consent},
				observability.NewLogger("test"),
			)

			decision := engine.CanSend(context.Background(), "U1", tt.category)
			if decision.Allowed != tt.wantAllowed {
				t.Errorf("allowed = %v, want %v", decision.Allowed, tt.wantAllowed)
			}
			if tt.wantReason != "" && decision.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", decision.Reason, tt.wantReason)
			}
		})
	}
}

func TestPolicyEngine_ExemptCategoriesSkipConsentLookup(t *testing.T) {
	// Exempt categories must not depend on the consent service at all, so a
	// consent outage can never drop a password reset or a receipt.
	called := false
	engine := NewPolicyEngine(&MockConsentService{
		GetConsentStateFunc: func(ctx context.Context, ownerID string) (ConsentState, error) {
			called = true
			return ConsentState{}, errors.New("must not be reached")
		},
	}, observability.NewLogger("test"))

	for _, category := range []Category{CategoryPasswordReset, CategoryEmailVerification, CategoryPurchaseReceipt, CategoryAccountWelcome} {
		if decision := engine.CanSend(context.Background(), "U1", category); !decision.Allowed {
			t.Errorf("%s: expected allowed", category)
		}
	}
	if called {
		t.Error("consent service was consulted for an exempt category")
	}
}
