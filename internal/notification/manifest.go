package notification

// Manifest declares the variable contract for a template: the variables the
// provider-side template requires and the ones it renders conditionally.
type Manifest struct {
	Required []string
	Optional []string
}

// manifests maps every template reference to its variable contract. This is
// immutable configuration; a composed message is checked against it before
// any provider call is attempted.
var manifests = map[TemplateRef]Manifest{
	TemplateWelcome: {
		Required: []string{"firstName"},
		Optional: []string{"lastName"},
	},
	TemplateEmailVerification: {
		Required: []string{"firstName", "verifyUrl"},
		Optional: []string{"expiresInMinutes"},
	},
	TemplatePasswordReset: {
		Required: []string{"resetUrl"},
		Optional: []string{"firstName", "expiresInMinutes"},
	},
	TemplatePurchaseReceipt: {
		Required: []string{"firstName", "amount", "currency", "paymentId", "creditCount", "purchaseDate"},
		Optional: []string{"invoiceUrl", "paymentMethod"},
	},
	TemplateLowCredits: {
		Required: []string{"firstName", "currentCredits", "threshold"},
		Optional: []string{"topUpUrl"},
	},
	TemplateInterviewFeedback: {
		Required: []string{"firstName", "interviewTitle", "feedbackUrl"},
		Optional: []string{"overallScore"},
	},
	TemplateInterviewReminder: {
		Required: []string{"firstName", "interviewTitle", "startsAt"},
		Optional: []string{"joinUrl", "durationMinutes"},
	},
}

// ManifestFor returns the variable contract for a template reference.
func ManifestFor(ref TemplateRef) (Manifest, bool) {
	m, ok := manifests[ref]
	return m, ok
}

// ValidationResult is the outcome of checking variables against a manifest.
// UnknownTemplate marks a configuration error, as opposed to missing data.
type ValidationResult struct {
	Valid           bool
	MissingRequired []string
	UnknownTemplate bool
}

// ValidateVariables checks a variable payload against the manifest for ref.
// A required variable counts as missing when absent or empty: providers
// render blank required fields as visibly broken content instead of erroring.
// Optional variables are never checked. Pure, no I/O.
func ValidateVariables(ref TemplateRef, vars map[string]string) ValidationResult {
	manifest, ok := manifests[ref]
	if !ok {
		return ValidationResult{UnknownTemplate: true}
	}

	var missing []string
	for _, name := range manifest.Required {
		if vars[name] == "" {
			missing = append(missing, name)
		}
	}

	return ValidationResult{
		Valid:           len(missing) == 0,
		MissingRequired: missing,
	}
}
