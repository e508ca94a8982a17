package neufin

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   any
		currency string
		locale   string
		want     string
	}{
		{"usd en-US", 1850, "USD", "en-US", "$1,850.00"},
		{"defaults", 5, "", "", "$5.00"},
		{"rounds to cents", 184.666666, "USD", "en-US", "$184.67"},
		{"half cent rounds up", 0.005, "USD", "en-US", "$0.01"},
		{"negative", -1234.5, "USD", "en-US", "-$1,234.50"},
		{"millions", 1234567.891, "GBP", "en-GB", "£1,234,567.89"},
		{"lower case currency", 12, "usd", "en-US", "$12.00"},
		{"two digits even for yen", 1000, "JPY", "ja-JP", "¥1,000.00"},
		{"euro in germany", 1234.5, "EUR", "de-DE", "1.234,50\u00a0€"},
		{"euro in france", 1234.5, "EUR", "fr-FR", "1\u202f234,50\u00a0€"},
		{"euro in the netherlands", 1234.5, "EUR", "nl-NL", "€\u00a01.234,50"},
		{"underscore locale", 1234.5, "EUR", "de_DE", "1.234,50\u00a0€"},
		{"bad locale falls back to en-US", 1234.5, "USD", "not a locale!", "$1,234.50"},
		{"unknown currency uses its code", 10, "XYZ", "en-US", "XYZ\u00a010.00"},
		{"decimal", D("2770"), "USD", "en-US", "$2,770.00"},
		{"present optional", Some(D("0.5")), "USD", "en-US", "$0.50"},
		{"json number", json.Number("42.1"), "USD", "en-US", "$42.10"},
		{"numeric string", "99.999", "USD", "en-US", "$100.00"},
		{"money", M(3, "EUR"), "EUR", "en-US", "€3.00"},
		{"beyond int64 cents", "100000000000000000", "USD", "", "$100,000,000,000,000,000.00"},
		{"large negative in germany", "-123456789012345678901.234", "EUR", "de-DE", "-123.456.789.012.345.678.901,23\u00a0€"},
		{"negative rounding to zero", -0.001, "USD", "en-US", "$0.00"},
		{"nil", nil, "USD", "en-US", "-"},
		{"NaN", math.NaN(), "USD", "en-US", "-"},
		{"infinity", math.Inf(1), "USD", "en-US", "-"},
		{"absent optional", None(), "USD", "en-US", "-"},
		{"text", "n/a", "USD", "en-US", "-"},
		{"bool", true, "USD", "en-US", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCurrency(tt.amount, tt.currency, tt.locale)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "15.0000", FormatQuantity(D("15")))
	assert.Equal(t, "0.1235", FormatQuantity(D("0.12345")))
	assert.Equal(t, "1234.5000", FormatQuantity(D("1234.5")))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$1,850.00", M(1850, "").String())
	assert.Equal(t, "USD", M(1, "").Currency())
	assert.True(t, M(1.5, "eur").Equal(M(D("1.50"), "EUR")))
}
