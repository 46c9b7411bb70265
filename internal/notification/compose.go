package notification

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMissingDomainField marks a programmer error: a composer was called with
// domain data that should have been complete before composition started.
// It is distinct from missing optional data, which falls back to defaults.
var ErrMissingDomainField = errors.New("missing required domain field")

// User is the typed recipient data composers accept. Composers never see raw
// datastore rows.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Language  string
}

// Purchase describes a completed credits purchase.
type Purchase struct {
	ID            string
	Provider      string // payment provider, e.g. "mercadopago"
	AmountCents   int64
	Currency      string
	Credits       int
	PurchasedAt   time.Time
	InvoiceURL    string
	PaymentMethod string
}

// Interview describes a scheduled or completed mock interview.
type Interview struct {
	ID              string
	Title           string
	StartsAt        time.Time
	DurationMinutes int
	JoinURL         string
	OverallScore    string
}

// Composer builds fully specified outbound messages from domain data. All
// builders are pure: no dispatcher calls, no storage, no clock reads beyond
// the injected inputs (the current year comes from construction time, which
// is close enough for footer copy).
type Composer struct {
	cfg CommonConfig
}

func NewComposer(cfg CommonConfig) *Composer {
	return &Composer{cfg: cfg}
}

// Welcome composes the account-welcome message. Key: welcome:<ownerID>.
func (c *Composer) Welcome(u User) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}

	vars := map[string]string{
		"firstName": u.FirstName,
	}
	if u.LastName != "" {
		vars["lastName"] = u.LastName
	}

	return c.build(CategoryAccountWelcome, u, vars, fmt.Sprintf("welcome:%s", u.ID)), nil
}

// EmailVerification composes the address-verification message for one
// verification request. Key: verify:<ownerID>:<requestID>.
func (c *Composer) EmailVerification(u User, requestID, token string) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}
	if requestID == "" || token == "" {
		return nil, fmt.Errorf("email verification for user %s: %w", u.ID, ErrMissingDomainField)
	}

	vars := map[string]string{
		"firstName":        u.FirstName,
		"verifyUrl":        fmt.Sprintf("%s/verify-email?token=%s", c.cfg.BaseURL, token),
		"expiresInMinutes": "30",
	}

	return c.build(CategoryEmailVerification, u, vars, fmt.Sprintf("verify:%s:%s", u.ID, requestID)), nil
}

// PasswordReset composes the password-reset message for one reset request.
// Key: password-reset:<ownerID>:<requestID>.
func (c *Composer) PasswordReset(u User, requestID, token string) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}
	if requestID == "" || token == "" {
		return nil, fmt.Errorf("password reset for user %s: %w", u.ID, ErrMissingDomainField)
	}

	vars := map[string]string{
		"resetUrl":         fmt.Sprintf("%s/reset-password?token=%s", c.cfg.BaseURL, token),
		"expiresInMinutes": "30",
	}
	if u.FirstName != "" {
		vars["firstName"] = u.FirstName
	}

	return c.build(CategoryPasswordReset, u, vars, fmt.Sprintf("password-reset:%s:%s", u.ID, requestID)), nil
}

// PurchaseReceipt composes the receipt for a completed purchase.
// Key: purchase:<provider>:<paymentID>, stable across re-composition so a
// replayed payment webhook cannot produce a second receipt.
func (c *Composer) PurchaseReceipt(u User, p Purchase) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}
	if p.ID == "" || p.Provider == "" {
		return nil, fmt.Errorf("purchase receipt for user %s: %w", u.ID, ErrMissingDomainField)
	}

	lang := ResolveLanguage(u.Language, c.cfg)
	vars := map[string]string{
		"firstName":    u.FirstName,
		"amount":       FormatMoney(p.AmountCents, p.Currency, lang),
		"currency":     p.Currency,
		"paymentId":    p.ID,
		"creditCount":  strconv.Itoa(p.Credits),
		"purchaseDate": FormatDate(p.PurchasedAt, lang),
	}
	if p.InvoiceURL != "" {
		vars["invoiceUrl"] = p.InvoiceURL
	}
	if p.PaymentMethod != "" {
		vars["paymentMethod"] = p.PaymentMethod
	}

	return c.build(CategoryPurchaseReceipt, u, vars, fmt.Sprintf("purchase:%s:%s", p.Provider, p.ID)), nil
}

// LowBalanceWarning composes the low-credits warning. The key folds in the
// threshold and the calendar date, so repeated composition on the same day
// collapses to one logical send: low-credits:<ownerID>:<threshold>:<date>.
func (c *Composer) LowBalanceWarning(u User, currentCredits, threshold int, day time.Time) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}

	vars := map[string]string{
		"firstName":      u.FirstName,
		"currentCredits": strconv.Itoa(currentCredits),
		"threshold":      strconv.Itoa(threshold),
		"topUpUrl":       c.cfg.DashboardURL + "/billing",
	}

	key := fmt.Sprintf("low-credits:%s:%d:%s", u.ID, threshold, day.Format("2006-01-02"))
	return c.build(CategoryLowBalanceWarning, u, vars, key), nil
}

// InterviewFeedback composes the feedback-ready message.
// Key: feedback:<interviewID>.
func (c *Composer) InterviewFeedback(u User, iv Interview) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}
	if iv.ID == "" {
		return nil, fmt.Errorf("interview feedback for user %s: %w", u.ID, ErrMissingDomainField)
	}

	vars := map[string]string{
		"firstName":      u.FirstName,
		"interviewTitle": iv.Title,
		"feedbackUrl":    fmt.Sprintf("%s/interviews/%s/feedback", c.cfg.DashboardURL, iv.ID),
	}
	if iv.OverallScore != "" {
		vars["overallScore"] = iv.OverallScore
	}

	return c.build(CategoryInterviewFeedback, u, vars, fmt.Sprintf("feedback:%s", iv.ID)), nil
}

// InterviewReminder composes the upcoming-interview reminder. The scheduled
// time is part of the key, so a rescheduled interview produces a fresh
// logical send: reminder:<interviewID>:<scheduled time>.
func (c *Composer) InterviewReminder(u User, iv Interview) (*ComposedMessage, error) {
	if err := requireUser(u); err != nil {
		return nil, err
	}
	if iv.ID == "" || iv.StartsAt.IsZero() {
		return nil, fmt.Errorf("interview reminder for user %s: %w", u.ID, ErrMissingDomainField)
	}

	lang := ResolveLanguage(u.Language, c.cfg)
	vars := map[string]string{
		"firstName":      u.FirstName,
		"interviewTitle": iv.Title,
		"startsAt":       FormatDateTime(iv.StartsAt, lang),
	}
	if iv.JoinURL != "" {
		vars["joinUrl"] = iv.JoinURL
	}
	if iv.DurationMinutes > 0 {
		vars["durationMinutes"] = strconv.Itoa(iv.DurationMinutes)
	}

	key := fmt.Sprintf("reminder:%s:%s", iv.ID, iv.StartsAt.UTC().Format(time.RFC3339))
	return c.build(CategoryInterviewReminder, u, vars, key), nil
}

// build assembles the final message: resolves the template and locale, and
// merges the process-wide common variables. Common variables never override
// category-specific ones with the same name.
func (c *Composer) build(category Category, u User, vars map[string]string, idempotencyKey string) *ComposedMessage {
	spec := categorySpecs[category]
	lang := ResolveLanguage(u.Language, c.cfg)

	common := map[string]string{
		"currentYear":  strconv.Itoa(time.Now().Year()),
		"termsUrl":     c.cfg.TermsURL,
		"privacyUrl":   c.cfg.PrivacyURL,
		"supportEmail": c.cfg.SupportEmail,
		"dashboardUrl": c.cfg.DashboardURL,
	}
	for name, value := range common {
		if _, taken := vars[name]; !taken {
			vars[name] = value
		}
	}

	return &ComposedMessage{
		Recipient:      u.Email,
		Sender:         c.sender(),
		Template:       spec.Template,
		Language:       lang,
		Variables:      vars,
		Category:       category,
		IdempotencyKey: idempotencyKey,
		OwnerID:        u.ID,
	}
}

func (c *Composer) sender() string {
	if c.cfg.SenderName != "" {
		return fmt.Sprintf("%s <%s>", c.cfg.SenderName, c.cfg.SenderEmail)
	}
	return c.cfg.SenderEmail
}

func requireUser(u User) error {
	if u.ID == "" || u.Email == "" {
		return fmt.Errorf("user id and email: %w", ErrMissingDomainField)
	}
	return nil
}
