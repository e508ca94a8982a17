package neufin

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// number lists the Go types accepted by the decimal factories.
type number interface {
	float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal
}

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	}
	// Only decimal.Decimal is left in number.
	return any(value).(decimal.Decimal)
}

// Optional is a decimal value that may be absent.
//
// Upstream payloads mix null, missing keys and zero; all three are kept apart:
// null and missing are absent, zero is a present value.
type Optional struct {
	value decimal.NullDecimal
}

// Some returns a present Optional.
func Some[T number](value T) Optional {
	return Optional{value: decimal.NewNullDecimal(newDecimal(value))}
}

// None returns an absent Optional.
func None() Optional { return Optional{} }

// IsPresent reports whether o holds a value.
func (o Optional) IsPresent() bool { return o.value.Valid }

// Get returns the value and whether it is present.
func (o Optional) Get() (decimal.Decimal, bool) { return o.value.Decimal, o.value.Valid }

// Or returns o when present, fallback otherwise.
func (o Optional) Or(fallback Optional) Optional {
	if o.value.Valid {
		return o
	}
	return fallback
}

// OrZero returns the value, or zero when absent.
func (o Optional) OrZero() decimal.Decimal {
	if o.value.Valid {
		return o.value.Decimal
	}
	return decimal.Zero
}

// Equal reports whether o and p are both absent, or both present with equal
// values.
func (o Optional) Equal(p Optional) bool {
	if o.value.Valid != p.value.Valid {
		return false
	}
	return !o.value.Valid || o.value.Decimal.Equal(p.value.Decimal)
}

// String returns the decimal value, or "<absent>".
func (o Optional) String() string {
	if !o.value.Valid {
		return "<absent>"
	}
	return o.value.Decimal.String()
}

// MarshalJSON writes the value as a JSON number, or null when absent.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.value.Valid {
		return []byte("null"), nil
	}
	return []byte(o.value.Decimal.String()), nil
}

// UnmarshalJSON is lenient: anything that is not a number or a numeric string
// decodes as absent instead of failing the whole payload.
func (o *Optional) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON value %q: %w", data, err)
	}
	*o = parseOptional(v)
	return nil
}

// parseOptional converts a decoded JSON value into an Optional.
func parseOptional(v any) Optional {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return None()
		}
		return Some(d)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return None()
		}
		return Some(t)
	case int:
		return Some(t)
	case int64:
		return Some(t)
	case decimal.Decimal:
		return Some(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return None()
		}
		return Some(d)
	default:
		return None()
	}
}
