package notification

import (
	"time"
)

// Category is the closed set of business reasons a message can be sent.
type Category string

const (
	CategoryAccountWelcome    Category = "account-welcome"
	CategoryEmailVerification Category = "email-verification"
	CategoryPasswordReset     Category = "password-reset"
	CategoryPurchaseReceipt   Category = "purchase-receipt"
	CategoryLowBalanceWarning Category = "low-balance-warning"
	CategoryInterviewFeedback Category = "interview-feedback"
	CategoryInterviewReminder Category = "interview-reminder"
)

// TemplateRef identifies a provider-side message template.
type TemplateRef string

const (
	TemplateWelcome           TemplateRef = "welcome-v1"
	TemplateEmailVerification TemplateRef = "verify-email-v1"
	TemplatePasswordReset     TemplateRef = "password-reset-v1"
	TemplatePurchaseReceipt   TemplateRef = "purchase-receipt-v1"
	TemplateLowCredits        TemplateRef = "low-credits-v1"
	TemplateInterviewFeedback TemplateRef = "interview-feedback-v1"
	TemplateInterviewReminder TemplateRef = "interview-reminder-v1"
)

// Status is the delivery record lifecycle state.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSending Status = "SENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Attachment is a file attached to an outbound message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// ComposedMessage is a fully specified outbound message. It is built once per
// logical notification and never mutated afterwards; a retry builds a new
// message with the same idempotency key from the same domain inputs.
type ComposedMessage struct {
	Recipient      string            `json:"recipient"`
	Sender         string            `json:"sender"`
	Template       TemplateRef       `json:"template"`
	Language       string            `json:"language"`
	Variables      map[string]string `json:"variables"`
	Attachments    []Attachment      `json:"attachments,omitempty"`
	Category       Category          `json:"category"`
	IdempotencyKey string            `json:"idempotency_key"`
	OwnerID        string            `json:"owner_id"`
}

// DeliveryRecord is the durable audit row for one logical notification,
// keyed by idempotency key. Records are never deleted.
type DeliveryRecord struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Recipient         string     `json:"recipient"`
	Category          Category   `json:"category"`
	Status            Status     `json:"status"`
	Provider          string     `json:"provider"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	IdempotencyKey    string     `json:"idempotency_key"`
	RetryCount        int        `json:"retry_count"`
	LastError         string     `json:"last_error,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DispatchResult is the per-message outcome returned to callers.
type DispatchResult struct {
	Success           bool   `json:"success"`
	Skipped           bool   `json:"skipped,omitempty"`
	Reason            string `json:"reason,omitempty"`
	DeliveryRecordID  string `json:"delivery_record_id,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// BatchResult aggregates per-message results of a batch dispatch.
type BatchResult struct {
	Results []DispatchResult `json:"results"`
	Sent    int              `json:"sent"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
}

// CommonConfig carries the process-wide values merged into every composed
// message. It is constructed once at startup and injected; the composer
// never reads the environment.
type CommonConfig struct {
	BaseURL            string
	DashboardURL       string
	SupportEmail       string
	TermsURL           string
	PrivacyURL         string
	SenderEmail        string
	SenderName         string
	DefaultLanguage    string
	SupportedLanguages []string
}
