package neufin

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	// UnknownSymbol groups the raw holdings that carry no ticker symbol.
	UnknownSymbol = "Unknown"
	// DefaultCurrency is used when a raw holding has no ISO currency code.
	DefaultCurrency = "USD"
)

// RawHolding is one brokerage position for one (account, security) pair, as
// received from the holdings source.
//
// Valuations come in two flavours: the institution-reported one and a fresher
// "current" one. Either may be missing.
type RawHolding struct {
	SecurityID       string   `json:"securityId,omitempty"`
	AccountID        string   `json:"accountId,omitempty"`
	Symbol           string   `json:"symbol,omitempty"`
	Name             string   `json:"name,omitempty"`
	Quantity         Optional `json:"quantity"`
	CostBasis        Optional `json:"costBasis"`
	InstitutionPrice Optional `json:"institutionPrice"`
	InstitutionValue Optional `json:"institutionValue"`
	CurrentPrice     Optional `json:"currentPrice"`
	CurrentValue     Optional `json:"currentValue"`
	ISOCurrencyCode  string   `json:"isoCurrencyCode,omitempty"`
}

// symbol returns the grouping key of the holding.
func (h RawHolding) symbol() string {
	if h.Symbol == "" {
		return UnknownSymbol
	}
	return h.Symbol
}

// currency returns the holding's currency code, defaulting to USD.
func (h RawHolding) currency() string {
	if h.ISOCurrencyCode == "" {
		return DefaultCurrency
	}
	return h.ISOCurrencyCode
}

// AggregatedHolding is one summary row per ticker symbol, combining all raw
// holdings across accounts that share that symbol.
type AggregatedHolding struct {
	Symbol        string
	Name          string
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
	AveragePrice  decimal.Decimal
	Currency      string
}

// MarshalJSON writes amounts as JSON numbers rather than decimal strings.
func (a AggregatedHolding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", a.Symbol)
	w.Append("name", a.Name)
	w.Append("totalQuantity", json.Number(a.TotalQuantity.String()))
	w.Append("totalValue", json.Number(a.TotalValue.String()))
	w.Append("averagePrice", json.Number(a.AveragePrice.String()))
	w.Append("currency", a.Currency)
	return w.MarshalJSON()
}
