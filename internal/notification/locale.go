package notification

import (
	"fmt"
	"strings"
	"time"
)

// FallbackLanguage is used when configuration carries no default. Spanish is
// the product baseline.
const FallbackLanguage = "es"

var monthNames = map[string][]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"pt": {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
}

var currencySymbols = map[string]string{
	"USD": "US$",
	"ARS": "$",
	"MXN": "$",
	"BRL": "R$",
	"EUR": "€",
}

// ResolveLanguage maps a stored user preference to a supported two-letter
// tag, falling back to the configured default for absent or unrecognized
// values.
func ResolveLanguage(preference string, cfg CommonConfig) string {
	fallback := cfg.DefaultLanguage
	if fallback == "" {
		fallback = FallbackLanguage
	}

	tag := strings.ToLower(strings.TrimSpace(preference))
	if len(tag) > 2 {
		// Accept full locale tags like "es-AR".
		tag = tag[:2]
	}
	if tag == "" {
		return fallback
	}

	for _, supported := range cfg.SupportedLanguages {
		if tag == supported {
			return tag
		}
	}
	return fallback
}

// FormatDate renders a calendar date in the given language.
func FormatDate(t time.Time, lang string) string {
	months, ok := monthNames[lang]
	if !ok {
		months = monthNames[FallbackLanguage]
	}
	month := months[t.Month()-1]

	switch lang {
	case "en":
		return fmt.Sprintf("%s %d, %d", month, t.Day(), t.Year())
	case "pt":
		return fmt.Sprintf("%d de %s de %d", t.Day(), month, t.Year())
	default:
		return fmt.Sprintf("%d de %s de %d", t.Day(), month, t.Year())
	}
}

// FormatDateTime renders a date with a wall-clock time, for reminders.
func FormatDateTime(t time.Time, lang string) string {
	return fmt.Sprintf("%s, %02d:%02d", FormatDate(t, lang), t.Hour(), t.Minute())
}

// FormatMoney renders an amount in minor units with the locale's separators.
func FormatMoney(amountCents int64, currency, lang string) string {
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}

	negative := amountCents < 0
	if negative {
		amountCents = -amountCents
	}
	units := amountCents / 100
	cents := amountCents % 100

	decimalSep, thousandsSep := ",", "."
	if lang == "en" {
		decimalSep, thousandsSep = ".", ","
	}

	return fmt.Sprintf("%s%s%s%s%02d",
		map[bool]string{true: "-", false: ""}[negative],
		symbol,
		groupDigits(units, thousandsSep),
		decimalSep,
		cents,
	)
}

func groupDigits(n int64, sep string) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
