package renderer

import (
	"strings"
	"time"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/view"
)

// Status values of a Holdings report.
const (
	StatusLoading = "loading"
	StatusError   = "error"
	StatusEmpty   = "empty"
	StatusReady   = "ready"
)

// Holdings is the data of a holdings report, with every value already
// formatted for display.
type Holdings struct {
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	FetchedAt string          `json:"fetchedAt,omitempty"`
	Stale     bool            `json:"stale,omitempty"`
	Rows      []HoldingRow    `json:"rows"`
	Totals    []CurrencyTotal `json:"totals,omitempty"`
}

// HoldingRow is one line of the holdings table.
type HoldingRow struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	AveragePrice string `json:"averagePrice"`
	Value        string `json:"value"`
}

// CurrencyTotal is the total value of the holdings in one currency.
type CurrencyTotal struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// NewHoldings builds the report of a view state. Totals are computed per
// currency, in order of first appearance, and formatted for locale.
func NewHoldings(st view.State, locale string) *Holdings {
	h := &Holdings{
		Title:  "Holdings",
		Status: st.Status.String(),
		Stale:  st.Stale,
		Rows:   []HoldingRow{},
	}
	if st.Err != nil {
		h.Error = st.Err.Error()
	}
	if !st.FetchedAt.IsZero() {
		h.FetchedAt = st.FetchedAt.UTC().Format(time.DateTime) + " UTC"
	}

	aggregated := make([]neufin.AggregatedHolding, 0, len(st.Rows))
	var currencies []string
	seen := make(map[string]bool)
	for _, r := range st.Rows {
		aggregated = append(aggregated, r.Holding)
		if !seen[r.Holding.Currency] {
			seen[r.Holding.Currency] = true
			currencies = append(currencies, r.Holding.Currency)
		}
		h.Rows = append(h.Rows, HoldingRow{
			Symbol:       cell(r.Holding.Symbol),
			Name:         cell(r.Holding.Name),
			Quantity:     r.Quantity,
			AveragePrice: r.AveragePrice,
			Value:        r.Value,
		})
	}
	for _, cur := range currencies {
		h.Totals = append(h.Totals, CurrencyTotal{
			Currency: cur,
			Value:    neufin.FormatCurrency(neufin.TotalValue(aggregated, cur), cur, locale),
		})
	}
	return h
}

// cell escapes s for use in a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
