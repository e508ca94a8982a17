package agent

import (
	"context"
	"fmt"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/docs"
	"github.com/neufin/neufin/renderer"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// HoldingsFunc returns the aggregated holdings of the current user.
type HoldingsFunc func(ctx context.Context) ([]neufin.AggregatedHolding, error)

// creates the facilitator
func newFacilitator(model string, experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and of answering the user's request.

			Learn about the experts' skills from the Tools and ask them questions.
			They keep the context of your previous questions.

			The user comes to understand the positions held across their brokerage accounts.
			The user assumes you know their tickers: ask the Analyst first.

			Devise a plan of questions for the experts and come up with the best response.
			Answer in markdown.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewResearcher returns an expert grounded on Google Search.
func NewResearcher(model string) *Expert {
	return &Expert{
		Name: "Researcher",
		Description: `This is an expert researcher, well aware of financial products and institutions,
		and of the latest news about companies and funds.
		Ask the Researcher whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert in financial markets. Use Google Search to
			ground your assertions and to get the latest news related to the request.
			`}}},
		},
	}
}

// NewAnalyst returns the expert of the user's holdings.
func NewAnalyst(model, locale string, holdings HoldingsFunc) *Expert {
	lib := []Function{HoldingsTool(holdings), FormatCurrencyTool(locale)}

	// The topic is embedded; a missing one is a build defect.
	topic, err := docs.GetTopic("holdings")
	if err != nil {
		panic(err)
	}

	return &Expert{
		Name: "Analyst",
		Description: `This is the Analyst. They read the user's holdings, aggregated per ticker symbol
		across all brokerage accounts, and compute figures about them.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are the analyst of the user's holdings. Use the Tools to read them, and
				format every amount you report with FormatCurrency.
				Pardon the approximate language of the other experts and figure out what they meant.

				This is how holdings are aggregated:

				` + topic}}},
		},
		Library: NewLibrary(lib),
	}
}

// HoldingsTool lists the aggregated holdings as a markdown table.
func HoldingsTool(holdings HoldingsFunc) *Func {
	const name = "Holdings"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `Holdings lists the positions of the user, one row per ticker symbol,
			with the total quantity, the average price and the total value in the position currency.`,
			Parameters: &genai.Schema{Type: genai.TypeObject},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown table of the aggregated holdings, followed by the total value per currency.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			rows, err := holdings(ctx)
			if err != nil {
				return errorResponse(id, name, fmt.Errorf("could not load holdings: %w", err))
			}
			return outputResponse(id, name, renderer.HoldingsContextMarkdown(rows))
		},
	}
}

// FormatCurrencyTool formats amounts the way the user reads them.
func FormatCurrencyTool(locale string) *Func {
	const name = "FormatCurrency"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: "FormatCurrency formats an amount of money for display to the user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"amount": {
						Type:        genai.TypeNumber,
						Description: "The amount, in major units.",
					},
					"currency": {
						Type:        genai.TypeString,
						Description: "The ISO 4217 currency code. USD by default.",
					},
				},
				Required: []string{"amount"},
			},
			Response: &genai.Schema{Type: genai.TypeString},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			currency, _ := args["currency"].(string)
			s := neufin.FormatCurrency(args["amount"], currency, locale)
			if s == "-" {
				return errorResponse(id, name, fmt.Errorf("argument 'amount' must be a number, got %T", args["amount"]))
			}
			return outputResponse(id, name, s)
		},
	}
}
