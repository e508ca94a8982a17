package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/neufin/neufin"
	"github.com/neufin/neufin/renderer"
	"github.com/neufin/neufin/view"
)

// aggregateCmd aggregates raw holdings read from files.
type aggregateCmd struct {
	locale string
	json   bool
}

func (*aggregateCmd) Name() string     { return "aggregate" }
func (*aggregateCmd) Synopsis() string { return "aggregate raw holdings read from JSON files" }
func (*aggregateCmd) Usage() string {
	return `neufin aggregate [-locale <locale>] [-json] [<file.json>...]

  Reads raw holdings, as returned by the backend, from the given files or
  from stdin, and displays them aggregated per ticker symbol. Holdings of
  all files are aggregated together.

Usage Examples:
$ neufin aggregate holdings.json
$ curl -s -H "Authorization: Bearer $NEUFIN_TOKEN" $NEUFIN_BACKEND_URL/api/plaid/holdings | neufin aggregate -json
`
}

func (c *aggregateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.locale, "locale", neufin.DefaultLocale, "display locale")
	f.BoolVar(&c.json, "json", false, "print the aggregated holdings as JSON")
}

func (c *aggregateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !neufin.ValidLocale(c.locale) {
		fmt.Fprintf(os.Stderr, "Error: invalid locale %q\n", c.locale)
		return subcommands.ExitUsageError
	}

	raw, err := readHoldings(os.Stdin, f.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	st := view.State{Status: view.Ready, Rows: view.Rows(neufin.Aggregate(raw), c.locale)}
	if len(st.Rows) == 0 {
		st.Status = view.Empty
	}

	if c.json {
		if err := writeHoldingsJSON(os.Stdout, st.Rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderHoldings(renderer.NewHoldings(st, c.locale)))
	return subcommands.ExitSuccess
}

// readHoldings decodes raw holdings from files, or from stdin without files.
func readHoldings(stdin io.Reader, files ...string) ([]neufin.RawHolding, error) {
	if len(files) == 0 {
		raw, err := neufin.DecodeHoldings(stdin)
		if err != nil {
			return nil, fmt.Errorf("could not decode stdin: %w", err)
		}
		return raw, nil
	}

	var all []neufin.RawHolding
	for _, file := range files {
		raw, err := decodeFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, raw...)
	}
	return all, nil
}

func decodeFile(file string) ([]neufin.RawHolding, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("could not open holdings file %q: %w", file, err)
	}
	defer f.Close()

	raw, err := neufin.DecodeHoldings(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode holdings file %q: %w", file, err)
	}
	return raw, nil
}
