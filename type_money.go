package neufin

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

// M returns value as money in currency. An empty currency means USD.
func M[T number](value T, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{value: newDecimal(value), cur: strings.ToUpper(currency)}
}

func (m Money) Currency() string        { return m.cur }
func (m Money) Amount() decimal.Decimal { return m.value }
func (m Money) Equal(n Money) bool      { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool            { return m.value.IsZero() }

// String formats the money for the default locale.
func (m Money) String() string { return m.Format(DefaultLocale) }

// Format returns the money as a localized currency string with exactly two
// fraction digits, whatever the currency's own minor unit.
func (m Money) Format(locale string) string {
	nf := formatFor(locale)

	grapheme, known := m.cur, false
	if c := money.GetCurrency(m.cur); c != nil && c.Grapheme != "" {
		grapheme, known = c.Grapheme, true
	}

	// go-money templates: "$" is the symbol, "1" the amount.
	template := "$1"
	switch {
	case nf.symbolAfter:
		template = "1" + nbsp + "$"
	case nf.spaced || !known:
		template = "$" + nbsp + "1"
	}

	value := m.value.Round(2)
	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Neg()
	}
	digits := value.StringFixed(2)
	integer, fraction := digits[:len(digits)-3], digits[len(digits)-2:]
	amount := groupThousands(integer, nf.thousand) + nf.decimal + fraction

	out := strings.Replace(template, "1", amount, 1)
	return sign + strings.Replace(out, "$", grapheme, 1)
}

// groupThousands inserts sep every three digits from the right.
func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCurrency formats amount in currency for locale. currency defaults to
// USD and locale to en-US. Anything that is not a finite number, including an
// absent Optional, formats as "-".
func FormatCurrency(amount any, currency, locale string) string {
	d, ok := numeric(amount)
	if !ok {
		return "-"
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return M(d, currency).Format(locale)
}

// FormatQuantity formats a quantity with four fraction digits.
func FormatQuantity(q decimal.Decimal) string { return q.StringFixed(4) }

// numeric converts amount to a decimal when it holds a finite number.
func numeric(amount any) (decimal.Decimal, bool) {
	switch v := amount.(type) {
	case nil:
		return decimal.Zero, false
	case Money:
		return v.value, true
	case decimal.Decimal:
		return v, true
	case Optional:
		return v.Get()
	case decimal.NullDecimal:
		return v.Decimal, v.Valid
	case float32:
		return numeric(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromUint64(uint64(v)), true
	case uint64:
		return decimal.NewFromUint64(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
