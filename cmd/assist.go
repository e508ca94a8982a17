package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/neufin/neufin"
	"github.com/neufin/neufin/agent"
	"github.com/neufin/neufin/renderer"
	"github.com/neufin/neufin/view"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	model string
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }
func (*assistCmd) Usage() string {
	return `neufin assist [-model <model>] [<question>...]

  Starts an interactive session with the AI assistant. The assistant reads
  your holdings through the backend. The question, when given, is asked first.

  The Gemini API key is read from assistant.api_key, NEUFIN_GEMINI_API_KEY
  or GEMINI_API_KEY.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.model, "model", "", "Gemini model (defaults to assistant.model)")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	session, err := cliSession(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	model := cfg.Assistant.Model
	if c.model != "" {
		model = c.model
	}

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Assistant.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	log := newLogger(cfg)
	v := view.New(newBackend(cfg, log), newCache(cfg, log), session,
		view.WithLocale(cfg.Display.Locale), view.WithLogger(log))
	defer v.Close()

	analyst := agent.NewAnalyst(model, cfg.Display.Locale, viewHoldings(v))
	analyst.Logger = log
	researcher := agent.NewResearcher(model)
	researcher.Logger = log

	a := agent.New(os.Stdout, os.Stdin, model, analyst, researcher)
	a.Facilitator.Logger = log
	a.Render = func(md string) (string, error) { return renderer.Terminal(md, 100) }

	if err := a.Run(ctx, client, prompts...); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// viewHoldings reads the aggregated holdings through v, so that repeated
// questions are answered from the cache.
func viewHoldings(v *view.View) agent.HoldingsFunc {
	return func(ctx context.Context) ([]neufin.AggregatedHolding, error) {
		st := v.Load(ctx)
		if st.Status == view.Error {
			return nil, st.Err
		}
		holdings := make([]neufin.AggregatedHolding, 0, len(st.Rows))
		for _, r := range st.Rows {
			holdings = append(holdings, r.Holding)
		}
		return holdings, nil
	}
}
