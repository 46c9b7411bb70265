package notification

import (
	"reflect"
	"testing"
)

func TestValidateVariables(t *testing.T) {
	tests := []struct {
		name        string
		ref         TemplateRef
		vars        map[string]string
		wantValid   bool
		wantMissing []string
		wantUnknown bool
	}{
		{
			name: "complete payload",
			ref:  TemplateLowCredits,
			vars: map[string]string{
				"firstName":      "Ana",
				"currentCredits": "1",
				"threshold":      "2",
			},
			wantValid: true,
		},
		{
			name:        "absent required variable",
			ref:         TemplateLowCredits,
			vars:        map[string]string{"firstName": "Ana", "threshold": "2"},
			wantMissing: []string{"currentCredits"},
		},
		{
			name: "empty string counts as missing",
			ref:  TemplateEmailVerification,
			vars: map[string]string{"firstName": "Ana", "verifyUrl": ""},
			// Providers render blank required fields as broken content.
			wantMissing: []string{"verifyUrl"},
		},
		{
			name:      "absent optional variable is legal",
			ref:       TemplatePasswordReset,
			vars:      map[string]string{"resetUrl": "https://x/reset"},
			wantValid: true,
		},
		{
			name:        "unknown template reference",
			ref:         TemplateRef("ghost-v9"),
			vars:        map[string]string{"firstName": "Ana"},
			wantUnknown: true,
		},
		{
			name: "missing list is ordered per manifest",
			ref:  TemplatePurchaseReceipt,
			vars: map[string]string{"firstName": "Ana", "currency": "ARS"},
			wantMissing: []string{
				"amount", "paymentId", "creditCount", "purchaseDate",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateVariables(tt.ref, tt.vars)
			if got.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.UnknownTemplate != tt.wantUnknown {
				t.Errorf("unknownTemplate = %v, want %v", got.UnknownTemplate, tt.wantUnknown)
			}
			if tt.wantMissing != nil && !reflect.DeepEqual(got.MissingRequired, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", got.MissingRequired, tt.wantMissing)
			}
		})
	}
}

func TestEveryCategoryHasManifest(t *testing.T) {
	for category, spec := range categorySpecs {
		if _, ok := ManifestFor(spec.Template); !ok {
			t.Errorf("category %s points at template %s with no manifest", category, spec.Template)
		}
	}
}
