package lineitems_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tariffbench/internal/lineitems"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"12.50", 12.5, true},
		{"$1,234.56", 1234.56, true},
		{"€1.234,56", 1234.56, true},
		{"1 234,56", 1234.56, true},
		{"£99", 99, true},
		{"-42.10", -42.10, true},
		{"$5.00,", 5, true},
		{"10,", 10, true},
		{"1,234.", 1234, true},
		{",", 0, false},
		{"widget", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"12-50", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := lineitems.ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "USD", lineitems.DetectCurrency("Widget $12.00"))
	assert.Equal(t, "EUR", lineitems.DetectCurrency("Total €45,00"))
	assert.Equal(t, "GBP", lineitems.DetectCurrency("£3.20 each"))
	assert.Equal(t, "USD", lineitems.DetectCurrency("Amount (USD) 12.00"))
	assert.Equal(t, "CAD", lineitems.DetectCurrency("12.00 CAD"))
	assert.Equal(t, "", lineitems.DetectCurrency("Widget 12.00"))
}
