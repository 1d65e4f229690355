package classifier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariffbench/internal/classifier"
	"tariffbench/internal/domain"
)

func TestParseClassification_Valid(t *testing.T) {
	raw := []byte(`{"code": "8471.41.01", "confidence": 0.92, "rationale": "ADP machine with CPU"}`)

	cls, err := classifier.ParseClassification("openai", "gpt-4o", raw)
	require.NoError(t, err)
	assert.Equal(t, "8471.41.01", cls.Code)
	assert.InDelta(t, 0.92, cls.Confidence, 1e-9)
	assert.Equal(t, "ADP machine with CPU", cls.Rationale)
	assert.Equal(t, "gpt-4o", cls.ModelUsed)
	assert.Equal(t, classifier.PromptVersion, cls.PromptVersion)
}

func TestParseClassification_NormalizesBareDigits(t *testing.T) {
	raw := []byte(`{"code": "84714101", "confidence": 0.8}`)

	cls, err := classifier.ParseClassification("claude", "claude-sonnet-4-20250514", raw)
	require.NoError(t, err)
	assert.Equal(t, "8471.41.01", cls.Code)
}

func TestParseClassification_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not_json", `the code is 8471.41`},
		{"missing_code", `{"confidence": 0.9}`},
		{"missing_confidence", `{"code": "8471.41"}`},
		{"confidence_out_of_range", `{"code": "8471.41", "confidence": 1.5}`},
		{"code_not_numeric", `{"code": "chapter 84", "confidence": 0.9}`},
		{"extra_field", `{"code": "8471.41", "confidence": 0.9, "duty": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifier.ParseClassification("openai", "gpt-4o", []byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedResponse))

			var malformed *classifier.MalformedResponseError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, "openai", malformed.Provider)
		})
	}
}

func TestNormalizeHTSCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"847141", "8471.41", true},
		{"8471.41", "8471.41", true},
		{"84714101", "8471.41.01", true},
		{"8471410150", "8471.41.01.50", true},
		{"8471.41.01.50", "8471.41.01.50", true},
		{"8471", "", false},
		{"84714", "", false},
		{"847141015012", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := classifier.NormalizeHTSCode(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
