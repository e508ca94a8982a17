package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neufin/neufin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func aapl(ctx context.Context) ([]neufin.AggregatedHolding, error) {
	return neufin.Aggregate([]neufin.RawHolding{
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1850)},
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(5), InstitutionValue: neufin.Some(920)},
	}), nil
}

func TestHoldingsTool(t *testing.T) {
	resp := HoldingsTool(aapl).Call(context.Background(), "1", nil)

	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, "Holdings", resp.Name)
	out, ok := resp.Response["output"].(string)
	require.True(t, ok, "response: %v", resp.Response)
	assert.Contains(t, out, "| AAPL | Apple Inc. | USD | 15 |")
	assert.Contains(t, out, "- USD: 2770")
}

func TestHoldingsTool_Error(t *testing.T) {
	failing := func(ctx context.Context) ([]neufin.AggregatedHolding, error) {
		return nil, errors.New("not authenticated")
	}

	resp := HoldingsTool(failing).Call(context.Background(), "1", nil)

	assert.Equal(t, "could not load holdings: not authenticated", resp.Response["error"])
}

func TestFormatCurrencyTool(t *testing.T) {
	tool := FormatCurrencyTool("en-US")

	resp := tool.Call(context.Background(), "1", map[string]any{"amount": 1850.0})
	assert.Equal(t, "$1,850.00", resp.Response["output"])

	resp = tool.Call(context.Background(), "2", map[string]any{"amount": 10.0, "currency": "EUR"})
	assert.Equal(t, "€10.00", resp.Response["output"])

	resp = tool.Call(context.Background(), "3", map[string]any{"amount": "a lot"})
	assert.Contains(t, resp.Response, "error")
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary([]Function{HoldingsTool(aapl), FormatCurrencyTool("en-US")})

	resp := lib(context.Background(), &genai.FunctionCall{ID: "7", Name: "FormatCurrency", Args: map[string]any{"amount": 1.5}})
	assert.Equal(t, "$1.50", resp.Response["output"])

	resp = lib(context.Background(), &genai.FunctionCall{ID: "8", Name: "Trade"})
	assert.Equal(t, "8", resp.ID)
	assert.Equal(t, "unknown function Trade", resp.Response["error"])
}

func TestNewDeclaration(t *testing.T) {
	decls := NewDeclaration([]Function{HoldingsTool(aapl), FormatCurrencyTool("en-US")})

	require.Len(t, decls, 2)
	assert.Equal(t, "Holdings", decls[0].Name)
	assert.Equal(t, "FormatCurrency", decls[1].Name)
}

func TestExpert_CallRejectsInvalidQuestion(t *testing.T) {
	e := NewResearcher(DefaultModel)

	resp := e.Call(context.Background(), "1", map[string]any{"question": 42})

	assert.Equal(t, "Researcher", resp.Name)
	assert.Contains(t, resp.Response["error"], "expected string")
}

func TestExpert_AskNotStarted(t *testing.T) {
	_, err := NewAnalyst(DefaultModel, "en-US", aapl).Ask(context.Background(), &genai.Part{Text: "hi"})
	assert.Error(t, err)
}

func TestNewAnalyst(t *testing.T) {
	e := NewAnalyst(DefaultModel, "en-US", aapl)

	require.NotNil(t, e.Library)
	require.Len(t, e.Config.Tools, 1)
	assert.Len(t, e.Config.Tools[0].FunctionDeclarations, 2)
	assert.Contains(t, e.Config.SystemInstruction.Parts[0].Text, "Holdings")
}

func TestNew_FacilitatorDeclaresExperts(t *testing.T) {
	var out bytes.Buffer
	a := New(&out, strings.NewReader(""), DefaultModel, NewAnalyst(DefaultModel, "en-US", aapl))

	assert.Equal(t, "Facilitator", a.Facilitator.Name)
	assert.Len(t, a.Facilitator.Config.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "Analyst", a.Facilitator.Config.Tools[0].FunctionDeclarations[0].Name)
}

func TestAgent_Print(t *testing.T) {
	var out bytes.Buffer
	a := New(&out, strings.NewReader(""), DefaultModel)

	a.print("**hi**")
	assert.Equal(t, "**hi**\n", out.String())

	out.Reset()
	a.Render = func(md string) (string, error) { return "<" + md + ">", nil }
	a.print("x")
	assert.Equal(t, "<x>", out.String())

	out.Reset()
	a.Render = func(md string) (string, error) { return "", errors.New("no terminal") }
	a.print("x")
	assert.Equal(t, "x\n", out.String())
}
