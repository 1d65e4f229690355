package lineitems

import (
	"regexp"
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

var currencyCodes = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|INR|BSD)\b`)

// ParseAmount normalizes a raw numeric token to a float64. It strips currency
// symbols and thousands separators and accepts both decimal comma and decimal
// point. The second return is false when the token is not a number.
func ParseAmount(tok string) (float64, bool) {
	s := strings.TrimSpace(tok)
	for sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	// Trailing commas and periods are row punctuation, not decimals:
	// "$5.00," is 5.00, never 500.
	s = strings.TrimRight(s, ",.")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// decimal comma: "1.234,56" -> "1234.56"
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, " ", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		// decimal point or integer: drop grouping commas/spaces
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, " ", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DetectCurrency returns the ISO code implied by a line's currency symbol or
// explicit code, or "" when none is present.
func DetectCurrency(line string) string {
	for sym, code := range currencySymbols {
		if strings.Contains(line, sym) {
			return code
		}
	}
	if m := currencyCodes.FindString(line); m != "" {
		return m
	}
	return ""
}
