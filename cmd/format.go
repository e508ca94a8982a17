package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/neufin/neufin"
	"github.com/shopspring/decimal"
)

// formatCmd formats amounts the way holdings are displayed.
type formatCmd struct {
	currency string
	locale   string
	quantity bool
}

func (*formatCmd) Name() string     { return "format" }
func (*formatCmd) Synopsis() string { return "format amounts as currency or quantities" }
func (*formatCmd) Usage() string {
	return `neufin format [-currency <code>] [-locale <locale>] [-quantity] <amount>...

  Prints each amount formatted as in the holdings table, one per line.
  Non-numeric amounts print as "-". See "neufin topic currency".

Usage Examples:
$ neufin format -currency EUR -locale de-DE 1234.5
`
}

func (c *formatCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", neufin.DefaultCurrency, "ISO 4217 currency code")
	f.StringVar(&c.locale, "locale", neufin.DefaultLocale, "display locale")
	f.BoolVar(&c.quantity, "quantity", false, "format as quantities (four fraction digits)")
}

func (c *formatCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: missing amount")
		return subcommands.ExitUsageError
	}
	if !neufin.ValidLocale(c.locale) {
		fmt.Fprintf(os.Stderr, "Error: invalid locale %q\n", c.locale)
		return subcommands.ExitUsageError
	}

	for _, arg := range f.Args() {
		fmt.Println(c.format(arg))
	}
	return subcommands.ExitSuccess
}

func (c *formatCmd) format(arg string) string {
	if !c.quantity {
		return neufin.FormatCurrency(arg, c.currency, c.locale)
	}
	q, err := decimal.NewFromString(arg)
	if err != nil {
		return "-"
	}
	return neufin.FormatQuantity(q)
}
