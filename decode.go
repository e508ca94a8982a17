package neufin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/PaesslerAG/jsonpath"
)

// The holdings endpoint is not consistent about field naming: camelCase from
// the dashboard backend, snake_case when it relays the aggregator payload
// as-is, sometimes with the security nested in the holding. Every logical
// field is therefore resolved through a list of JSONPath selectors, first
// match wins.

// selector evaluates a compiled JSONPath expression.
type selector func(ctx context.Context, v any) (any, error)

// field is an ordered list of selectors for one logical field.
type field []selector

func compile(paths ...string) field {
	f := make(field, 0, len(paths))
	for _, p := range paths {
		eval, err := jsonpath.New(p)
		if err != nil {
			panic(fmt.Sprintf("invalid holdings selector %q: %v", p, err))
		}
		f = append(f, selector(eval))
	}
	return f
}

var (
	securityIDField       = compile("$.securityId", "$.security_id", "$.security.securityId", "$.security.security_id")
	accountIDField        = compile("$.accountId", "$.account_id")
	symbolField           = compile("$.symbol", "$.tickerSymbol", "$.ticker_symbol", "$.ticker", "$.security.symbol", "$.security.tickerSymbol", "$.security.ticker_symbol")
	nameField             = compile("$.name", "$.securityName", "$.security_name", "$.security.name")
	quantityField         = compile("$.quantity")
	costBasisField        = compile("$.costBasis", "$.cost_basis")
	institutionPriceField = compile("$.institutionPrice", "$.institution_price")
	institutionValueField = compile("$.institutionValue", "$.institution_value")
	currentPriceField     = compile("$.currentPrice", "$.current_price")
	currentValueField     = compile("$.currentValue", "$.current_value")
	currencyField         = compile("$.isoCurrencyCode", "$.iso_currency_code", "$.currency")

	holdingsEnvelope   = compile("$.holdings")
	securitiesEnvelope = compile("$.securities")
)

// lookup returns the first value matched by f that accept takes.
func (f field) lookup(obj any, accept func(any) bool) (any, bool) {
	ctx := context.Background()
	for _, sel := range f {
		v, err := sel(ctx, obj)
		// Selectors are plain member chains: a missing member is an error,
		// never a wrapped empty list.
		if err != nil || !accept(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func notNull(v any) bool { return v != nil }

// str returns the first non-empty string or number matched by f.
func (f field) str(obj any) string {
	v, ok := f.lookup(obj, func(v any) bool { return text(v) != "" })
	if !ok {
		return ""
	}
	return text(v)
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func (f field) optional(obj any) Optional {
	v, ok := f.lookup(obj, notNull)
	if !ok {
		return None()
	}
	return parseOptional(v)
}

// DecodeHoldings reads a holdings payload.
//
// The payload is either a JSON array of holding objects, or an object with a
// "holdings" array and an optional "securities" array. In the latter case
// holdings missing a symbol or a name borrow them from the security sharing
// their security id.
//
// Unknown or malformed fields never fail the decoding, they are absent. A
// payload of the wrong shape does.
func DecodeHoldings(r io.Reader) ([]RawHolding, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cannot decode holdings: %w", err)
	}

	var items, securities []any
	switch t := doc.(type) {
	case []any:
		items = t
	case map[string]any:
		v, ok := holdingsEnvelope.lookup(t, notNull)
		if !ok {
			return nil, fmt.Errorf("cannot decode holdings: object has no \"holdings\" array")
		}
		if items, ok = v.([]any); !ok {
			return nil, fmt.Errorf("cannot decode holdings: \"holdings\" is a %T, not an array", v)
		}
		if v, ok := securitiesEnvelope.lookup(t, notNull); ok {
			securities, _ = v.([]any)
		}
	case nil:
		return nil, fmt.Errorf("cannot decode holdings: payload is null")
	default:
		return nil, fmt.Errorf("cannot decode holdings: unexpected %T payload", doc)
	}

	index := indexSecurities(securities)

	holdings := make([]RawHolding, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot decode holding #%d: %T is not an object", i, item)
		}
		h := decodeHolding(obj)
		if sec, ok := index[h.SecurityID]; ok && h.SecurityID != "" {
			if h.Symbol == "" {
				h.Symbol = symbolField.str(sec)
			}
			if h.Name == "" {
				h.Name = nameField.str(sec)
			}
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

func decodeHolding(obj map[string]any) RawHolding {
	return RawHolding{
		SecurityID:       securityIDField.str(obj),
		AccountID:        accountIDField.str(obj),
		Symbol:           symbolField.str(obj),
		Name:             nameField.str(obj),
		Quantity:         quantityField.optional(obj),
		CostBasis:        costBasisField.optional(obj),
		InstitutionPrice: institutionPriceField.optional(obj),
		InstitutionValue: institutionValueField.optional(obj),
		CurrentPrice:     currentPriceField.optional(obj),
		CurrentValue:     currentValueField.optional(obj),
		ISOCurrencyCode:  currencyField.str(obj),
	}
}

// indexSecurities maps security ids to their security object.
func indexSecurities(securities []any) map[string]map[string]any {
	index := make(map[string]map[string]any, len(securities))
	for _, s := range securities {
		obj, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if id := securityIDField.str(obj); id != "" {
			index[id] = obj
		}
	}
	return index
}
