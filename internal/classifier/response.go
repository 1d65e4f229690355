package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"tariffbench/internal/domain"
)

// rawClassification mirrors the JSON contract in BuildHTSPrompt.
type rawClassification struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ParseClassification validates the model's raw JSON reply against the
// response schema and converts it into a domain.Classification. Any
// deviation is a MalformedResponseError: non-retryable, preserved for
// diagnostics.
func ParseClassification(provider, model string, content []byte) (*domain.Classification, error) {
	trimmed := []byte(strings.TrimSpace(string(content)))

	if err := ValidateJSONAgainstSchema(BuildClassificationJSONSchema(), trimmed); err != nil {
		return nil, &MalformedResponseError{
			Provider: provider,
			Reason:   err.Error(),
			Raw:      clip(string(trimmed), 500),
		}
	}

	var raw rawClassification
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &MalformedResponseError{
			Provider: provider,
			Reason:   fmt.Sprintf("unmarshal: %v", err),
			Raw:      clip(string(trimmed), 500),
		}
	}

	code, err := NormalizeHTSCode(raw.Code)
	if err != nil {
		return nil, &MalformedResponseError{
			Provider: provider,
			Reason:   err.Error(),
			Raw:      clip(string(trimmed), 500),
		}
	}

	return &domain.Classification{
		Code:          code,
		Confidence:    raw.Confidence,
		Rationale:     raw.Rationale,
		ModelUsed:     model,
		PromptVersion: PromptVersion,
	}, nil
}

// NormalizeHTSCode converts a dotted or bare HTS code into the canonical
// dotted form: "847141" -> "8471.41", "8471410010" -> "8471.41.00.10".
func NormalizeHTSCode(code string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)

	switch len(digits) {
	case 6, 8, 10:
	default:
		return "", fmt.Errorf("HTS code %q has %d digits, want 6, 8, or 10", code, len(digits))
	}

	parts := []string{digits[:4]}
	for i := 4; i < len(digits); i += 2 {
		parts = append(parts, digits[i:i+2])
	}
	return strings.Join(parts, "."), nil
}

func clip(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
