package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/neufin/neufin"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/renderer"
	"github.com/neufin/neufin/view"
)

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	locale  string
	json    bool
	refresh bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display holdings aggregated per ticker symbol" }
func (*holdingsCmd) Usage() string {
	return `neufin holdings [-locale <locale>] [-json] [-refresh]

  Fetches the holdings of all linked brokerage accounts and displays one row
  per ticker symbol. See "neufin topic holdings".
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.locale, "locale", "", "display locale, e.g. de-DE (defaults to display.locale)")
	f.BoolVar(&c.json, "json", false, "print the aggregated holdings as JSON")
	f.BoolVar(&c.refresh, "refresh", false, "bypass the cache")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	locale := cfg.Display.Locale
	if c.locale != "" {
		if !neufin.ValidLocale(c.locale) {
			fmt.Fprintf(os.Stderr, "Error: invalid locale %q\n", c.locale)
			return subcommands.ExitUsageError
		}
		locale = c.locale
	}

	session, err := cliSession(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	log := newLogger(cfg)
	v := view.New(newBackend(cfg, log), newCache(cfg, log), session, view.WithLocale(locale), view.WithLogger(log))
	defer v.Close()

	var st view.State
	if c.refresh {
		st = v.Refresh(ctx)
	} else {
		st = v.Load(ctx)
	}

	if st.Status == view.Error {
		fmt.Fprintf(os.Stderr, "Error fetching holdings: %v\n", st.Err)
		if errors.Is(st.Err, backend.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "The session was rejected: check NEUFIN_TOKEN.")
		}
		return subcommands.ExitFailure
	}

	if c.json {
		if err := writeHoldingsJSON(os.Stdout, st.Rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.RenderHoldings(renderer.NewHoldings(st, locale)))
	return subcommands.ExitSuccess
}

// writeHoldingsJSON writes the aggregated holdings of rows as an indented JSON array.
func writeHoldingsJSON(w io.Writer, rows []view.Row) error {
	holdings := make([]neufin.AggregatedHolding, 0, len(rows))
	for _, r := range rows {
		holdings = append(holdings, r.Holding)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(holdings)
}
