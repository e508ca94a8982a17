package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/neufin/neufin"
)

// HoldingsContextMarkdown renders aggregated holdings with their exact
// amounts, for consumers that need the numbers rather than display strings.
func HoldingsContextMarkdown(rows []neufin.AggregatedHolding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Holdings\n\n")
	if len(rows) == 0 {
		fmt.Fprintln(&b, "No holdings.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Symbol | Name | Currency | Total Quantity | Average Price | Total Value |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|")

	for _, h := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(h.Symbol),
			cell(h.Name),
			h.Currency,
			h.TotalQuantity.String(),
			h.AveragePrice.String(),
			h.TotalValue.String(),
		)
	}

	// Skip the section when all amounts are zero.
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Totals\n\n")
		seen := make(map[string]bool)
		nonZero := false
		for _, h := range rows {
			if seen[h.Currency] {
				continue
			}
			seen[h.Currency] = true
			total := neufin.TotalValue(rows, h.Currency)
			nonZero = nonZero || !total.IsZero()
			fmt.Fprintf(w, "- %s: %s\n", h.Currency, total.String())
		}
		return nonZero
	})
	return b.String()
}
