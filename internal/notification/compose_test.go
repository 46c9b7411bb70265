package notification

import (
	"errors"
	"testing"
	"time"
)

func TestComposer_IdempotencyKeys(t *testing.T) {
	composer := NewComposer(testCfg)
	day := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	startsAt := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		compose func() (*ComposedMessage, error)
		wantKey string
	}{
		{
			name:    "welcome",
			compose: func() (*ComposedMessage, error) { return composer.Welcome(testUser) },
			wantKey: "welcome:U1",
		},
		{
			name: "purchase receipt keyed by provider and payment",
			compose: func() (*ComposedMessage, error) {
				return composer.PurchaseReceipt(testUser, Purchase{ID: "P1", Provider: "mercadopago", Currency: "ARS", PurchasedAt: day})
			},
			wantKey: "purchase:mercadopago:P1",
		},
		{
			name: "low balance collapses per owner, threshold and day",
			compose: func() (*ComposedMessage, error) {
				return composer.LowBalanceWarning(User{ID: "U2", Email: "u2@example.com"}, 1, 2, day)
			},
			wantKey: "low-credits:U2:2:2024-05-01",
		},
		{
			name: "feedback keyed by interview",
			compose: func() (*ComposedMessage, error) {
				return composer.InterviewFeedback(testUser, Interview{ID: "IV1", Title: "Go basics"})
			},
			wantKey: "feedback:IV1",
		},
		{
			name: "reminder keyed by interview and scheduled time",
			compose: func() (*ComposedMessage, error) {
				return composer.InterviewReminder(testUser, Interview{ID: "IV1", Title: "Go basics", StartsAt: startsAt})
			},
			wantKey: "reminder:IV1:2024-06-01T15:00:00Z",
		},
		{
			name: "verification keyed by request",
			compose: func() (*ComposedMessage, error) {
				return composer.EmailVerification(testUser, "REQ7", "tok")
			},
			wantKey: "verify:U1:REQ7",
		},
		{
			name: "password reset keyed by request",
			compose: func() (*ComposedMessage, error) {
				return composer.PasswordReset(testUser, "REQ8", "tok")
			},
			wantKey: "password-reset:U1:REQ8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.compose()
			if err != nil {
				t.Fatalf("compose: %v", err)
			}
			if msg.IdempotencyKey != tt.wantKey {
				t.Errorf("key = %q, want %q", msg.IdempotencyKey, tt.wantKey)
			}

			// Same inputs, same key: composition must be deterministic.
			again, err := tt.compose()
			if err != nil {
				t.Fatalf("recompose: %v", err)
			}
			if again.IdempotencyKey != msg.IdempotencyKey {
				t.Errorf("recomposition changed the key: %q vs %q", again.IdempotencyKey, msg.IdempotencyKey)
			}
		})
	}
}

func TestComposer_CommonVariables(t *testing.T) {
	composer := NewComposer(testCfg)

	msg, err := composer.Welcome(testUser)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	for _, name := range []string{"currentYear", "termsUrl", "privacyUrl", "supportEmail", "dashboardUrl"} {
		if msg.Variables[name] == "" {
			t.Errorf("common variable %s not merged", name)
		}
	}
	if msg.Variables["supportEmail"] != testCfg.SupportEmail {
		t.Errorf("supportEmail = %q", msg.Variables["supportEmail"])
	}
}

func TestComposer_CommonVariablesNeverOverride(t *testing.T) {
	composer := NewComposer(testCfg)

	// The low-balance builder sets topUpUrl from the dashboard URL; a
	// category-specific dashboardUrl collision must win over the common set.
	vars := map[string]string{"dashboardUrl": "https://special/override"}
	msg := composer.build(CategoryAccountWelcome, testUser, vars, "welcome:U1")
	if msg.Variables["dashboardUrl"] != "https://special/override" {
		t.Errorf("common variable overrode category-specific value: %q", msg.Variables["dashboardUrl"])
	}
}

func TestComposer_LocaleSelection(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		want       string
	}{
		{"stored supported tag", "en", "en"},
		{"full locale tag is narrowed", "ES-ar", "es"},
		{"unsupported falls back to default", "fr", "es"},
		{"absent falls back to default", "", "es"},
	}

	composer := NewComposer(testCfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := testUser
			u.Language = tt.preference
			msg, err := composer.Welcome(u)
			if err != nil {
				t.Fatalf("compose: %v", err)
			}
			if msg.Language != tt.want {
				t.Errorf("language = %q, want %q", msg.Language, tt.want)
			}
		})
	}
}

func TestComposer_MissingDomainFields(t *testing.T) {
	composer := NewComposer(testCfg)

	if _, err := composer.Welcome(User{Email: "x@example.com"}); !errors.Is(err, ErrMissingDomainField) {
		t.Errorf("expected ErrMissingDomainField for user without id, got %v", err)
	}
	if _, err := composer.PurchaseReceipt(testUser, Purchase{Provider: "mercadopago"}); !errors.Is(err, ErrMissingDomainField) {
		t.Errorf("expected ErrMissingDomainField for purchase without id, got %v", err)
	}
	if _, err := composer.PasswordReset(testUser, "", "tok"); !errors.Is(err, ErrMissingDomainField) {
		t.Errorf("expected ErrMissingDomainField for reset without request id, got %v", err)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		lang     string
		want     string
	}{
		{150000, "ARS", "es", "$1.500,00"},
		{150000, "USD", "en", "US$1,500.00"},
		{999, "BRL", "pt", "R$9,99"},
		{-2500, "USD", "en", "-US$25.00"},
		{123456789, "ARS", "es", "$1.234.567,89"},
	}

	for _, tt := range tests {
		if got := FormatMoney(tt.cents, tt.currency, tt.lang); got != tt.want {
			t.Errorf("FormatMoney(%d, %s, %s) = %q, want %q", tt.cents, tt.currency, tt.lang, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		lang string
		want string
	}{
		{"es", "1 de mayo de 2024"},
		{"en", "May 1, 2024"},
		{"pt", "1 de maio de 2024"},
		{"xx", "1 de mayo de 2024"}, // unknown language uses the baseline
	}

	for _, tt := range tests {
		if got := FormatDate(day, tt.lang); got != tt.want {
			t.Errorf("FormatDate(%s) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}
