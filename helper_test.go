package neufin

import "github.com/shopspring/decimal"

// D is a helper for test to create a decimal from a literal.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// holding is a helper for test to create a raw holding with a quantity.
func holding(symbol string, quantity float64) RawHolding {
	return RawHolding{Symbol: symbol, Quantity: Some(quantity)}
}
