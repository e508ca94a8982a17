package neufin

import "github.com/shopspring/decimal"

// EffectiveValue returns the value a raw holding contributes to its symbol's
// total: the current value when present, else the institution value, else 0.
func EffectiveValue(h RawHolding) decimal.Decimal {
	return h.CurrentValue.Or(h.InstitutionValue).OrZero()
}

// EffectivePrice returns the current price when present, else the
// institution price. The result is absent when neither is reported.
func EffectivePrice(h RawHolding) Optional {
	return h.CurrentPrice.Or(h.InstitutionPrice)
}

// group accumulates the raw holdings sharing one symbol.
type group struct {
	first    RawHolding
	records  []RawHolding
	quantity decimal.Decimal
	value    decimal.Decimal
}

// Aggregate groups raw holdings by ticker symbol and returns one row per
// distinct symbol, in order of first appearance.
//
// Symbols match exactly (case and whitespace included). Name and currency
// come from the first record of each symbol. A record without a quantity
// contributes neither quantity nor value.
//
// When a symbol's total quantity is not positive the average price falls
// back to the first record, in input order, that has an effective price.
// That is the first record carrying any price, not the first carrying a
// current price.
//
// Aggregate never mutates raw and returns a fresh slice on every call.
func Aggregate(raw []RawHolding) []AggregatedHolding {
	var order []string
	groups := make(map[string]*group)

	for _, h := range raw {
		sym := h.symbol()
		g, ok := groups[sym]
		if !ok {
			g = &group{first: h}
			groups[sym] = g
			order = append(order, sym)
		}
		g.records = append(g.records, h)

		qty, ok := h.Quantity.Get()
		if !ok {
			continue
		}
		g.quantity = g.quantity.Add(qty)
		g.value = g.value.Add(EffectiveValue(h))
	}

	result := make([]AggregatedHolding, 0, len(order))
	for _, sym := range order {
		g := groups[sym]
		result = append(result, AggregatedHolding{
			Symbol:        sym,
			Name:          g.first.Name,
			TotalQuantity: g.quantity,
			TotalValue:    g.value,
			AveragePrice:  g.averagePrice(),
			Currency:      g.first.currency(),
		})
	}
	return result
}

func (g *group) averagePrice() decimal.Decimal {
	if g.quantity.IsPositive() {
		return g.value.Div(g.quantity)
	}
	for _, h := range g.records {
		if p, ok := EffectivePrice(h).Get(); ok {
			return p
		}
	}
	return decimal.Zero
}

// TotalValue sums the total value of aggregated rows sharing currency.
func TotalValue(rows []AggregatedHolding, currency string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Currency == currency {
			total = total.Add(r.TotalValue)
		}
	}
	return total
}
