package renderer

import (
	"embed"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.md
var goldenFS embed.FS

var fixGoldens = flag.Bool("fix-goldens", false, "if true, update failing golden .md files with the received output")

func TestFixGoldensIsOff(t *testing.T) {
	if *fixGoldens {
		t.Fatal("-fix-goldens is enabled. This flag should only be used for updating test fixtures and must be disabled for regular tests.")
	}
}

func readyState() view.State {
	raw := []neufin.RawHolding{
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1850)},
		{Symbol: "SAP", Name: "SAP SE", Quantity: neufin.Some(2.5), InstitutionValue: neufin.Some(300), ISOCurrencyCode: "EUR"},
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(5), InstitutionValue: neufin.Some(920)},
		{Symbol: "MSFT", Name: "Microsoft", Quantity: neufin.Some(0), InstitutionPrice: neufin.Some(410)},
	}
	return view.State{
		Status:    view.Ready,
		Rows:      view.Rows(neufin.Aggregate(raw), "en-US"),
		FetchedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestRenderHoldings(t *testing.T) {
	apiErr := &backend.APIError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway", Endpoint: backend.DefaultHoldingsPath}

	testCases := []struct {
		name       string
		state      view.State
		goldenFile string
	}{
		{"ready", readyState(), "testdata/holdings_ready.md"},
		{"empty", view.State{Status: view.Empty, Rows: []view.Row{}}, "testdata/holdings_empty.md"},
		{"error", view.State{Status: view.Error, Err: apiErr}, "testdata/holdings_error.md"},
		{"loading", view.State{Status: view.Loading}, "testdata/holdings_loading.md"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RenderHoldings(NewHoldings(tc.state, "en-US"))

			goldenData, err := goldenFS.ReadFile(tc.goldenFile)
			if err != nil && !*fixGoldens {
				t.Fatalf("failed to read golden file %q: %v", tc.goldenFile, err)
			}
			want := string(goldenData)

			if got != want {
				if *fixGoldens {
					if err := os.MkdirAll(filepath.Dir(tc.goldenFile), 0755); err != nil {
						t.Fatalf("failed to create testdata directory: %v", err)
					}
					if err := os.WriteFile(tc.goldenFile, []byte(got), 0644); err != nil {
						t.Fatalf("failed to write updated golden file %q: %v", tc.goldenFile, err)
					}
					t.Logf("updated golden file %s", tc.goldenFile)
					return
				}
				t.Errorf("output mismatch for %s:\n--- want\n%s\n+++ got\n%s", tc.name, want, got)
			}
		})
	}
}

func TestRenderHoldings_Stale(t *testing.T) {
	st := readyState()
	st.Stale = true

	got := RenderHoldings(NewHoldings(st, "en-US"))

	assert.Contains(t, got, "_As of 2025-03-14 09:30:00 UTC (refreshing)_")
}

func TestNewHoldings_EscapesCells(t *testing.T) {
	st := view.State{
		Status: view.Ready,
		Rows: view.Rows(neufin.Aggregate([]neufin.RawHolding{
			{Symbol: "A|B", Name: "Pipe | Co\nLtd", Quantity: neufin.Some(1)},
		}), "en-US"),
	}

	h := NewHoldings(st, "en-US")

	require.Len(t, h.Rows, 1)
	assert.Equal(t, `A\|B`, h.Rows[0].Symbol)
	assert.Equal(t, `Pipe \| Co Ltd`, h.Rows[0].Name)
}

func TestNewHoldings_TotalsFollowLocale(t *testing.T) {
	raw := []neufin.RawHolding{
		{Symbol: "SAP", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1234.5), ISOCurrencyCode: "EUR"},
	}
	st := view.State{Status: view.Ready, Rows: view.Rows(neufin.Aggregate(raw), "de-DE")}

	h := NewHoldings(st, "de-DE")

	require.Len(t, h.Totals, 1)
	assert.Equal(t, "EUR", h.Totals[0].Currency)
	assert.Equal(t, "1.234,50\u00a0€", h.Totals[0].Value)
}

func TestHTML(t *testing.T) {
	got, err := HTML(RenderHoldings(NewHoldings(readyState(), "en-US")))
	require.NoError(t, err)

	assert.Contains(t, got, "<h1>Holdings</h1>")
	assert.Contains(t, got, "<table>")
	assert.Contains(t, got, ">AAPL</td>")
	assert.Contains(t, got, "$2,770.00")
}

func TestHTMLPage_EscapesRawHTML(t *testing.T) {
	st := view.State{
		Status: view.Ready,
		Rows: view.Rows(neufin.Aggregate([]neufin.RawHolding{
			{Symbol: "EVIL", Name: "<script>alert(1)</script>", Quantity: neufin.Some(1)},
		}), "en-US"),
	}

	got, err := HTMLPage("Holdings <&>", RenderHoldings(NewHoldings(st, "en-US")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.Contains(t, got, "<title>Holdings &lt;&amp;&gt;</title>")
	assert.NotContains(t, got, "<script>")
}

func TestTerminal(t *testing.T) {
	got, err := Terminal(RenderHoldings(NewHoldings(readyState(), "en-US")), 100)
	require.NoError(t, err)

	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "Apple Inc.")
}

func TestHoldingsContextMarkdown(t *testing.T) {
	rows := neufin.Aggregate([]neufin.RawHolding{
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1850)},
		{Symbol: "SAP", Quantity: neufin.Some(1), CurrentValue: neufin.Some(100), ISOCurrencyCode: "EUR"},
	})

	got := HoldingsContextMarkdown(rows)

	assert.Contains(t, got, "| AAPL | Apple Inc. | USD | 10 | 185 | 1850 |")
	assert.Contains(t, got, "## Totals")
	assert.Contains(t, got, "- USD: 1850")
	assert.Contains(t, got, "- EUR: 100")
}

func TestHoldingsContextMarkdown_SkipsZeroTotals(t *testing.T) {
	rows := neufin.Aggregate([]neufin.RawHolding{{Symbol: "X", Quantity: neufin.Some(0)}})

	got := HoldingsContextMarkdown(rows)

	assert.NotContains(t, got, "## Totals")
	assert.Equal(t, "# Holdings\n\nNo holdings.\n", HoldingsContextMarkdown(nil))
}
