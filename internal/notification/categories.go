package notification

import "fmt"

// CategorySpec classifies a category for policy and template selection.
// SecurityExempt categories bypass consent entirely; MustSend categories
// bypass transactional consent but are still audited.
type CategorySpec struct {
	Template       TemplateRef
	SecurityExempt bool
	MustSend       bool
}

var categorySpecs = map[Category]CategorySpec{
	CategoryAccountWelcome: {
		Template: TemplateWelcome,
		MustSend: true,
	},
	CategoryEmailVerification: {
		Template:       TemplateEmailVerification,
		SecurityExempt: true,
	},
	CategoryPasswordReset: {
		Template:       TemplatePasswordReset,
		SecurityExempt: true,
	},
	CategoryPurchaseReceipt: {
		Template: TemplatePurchaseReceipt,
		MustSend: true,
	},
	CategoryLowBalanceWarning: {
		Template: TemplateLowCredits,
	},
	CategoryInterviewFeedback: {
		Template: TemplateInterviewFeedback,
	},
	CategoryInterviewReminder: {
		Template: TemplateInterviewReminder,
	},
}

// Spec returns the classification for a category.
func (c Category) Spec() (CategorySpec, error) {
	spec, ok := categorySpecs[c]
	if !ok {
		return CategorySpec{}, fmt.Errorf("unknown notification category: %s", c)
	}
	return spec, nil
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	_, ok := categorySpecs[c]
	return ok
}
