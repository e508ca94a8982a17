package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// locales offered by shell completion.
var locales = predict.Set{"en-US", "en-GB", "de-DE", "de-CH", "fr-FR", "es-ES", "it-IT", "pt-BR", "nl-NL", "ja-JP"}

// Completion returns the shell completion of the neufin command line.
func Completion() *complete.Command {
	global := map[string]complete.Predictor{
		"config": predict.Files("*.toml"),
		"v":      predict.Nothing,
	}
	return &complete.Command{
		Flags: global,
		Sub: map[string]*complete.Command{
			"holdings": {
				Flags: map[string]complete.Predictor{
					"locale":  locales,
					"json":    predict.Nothing,
					"refresh": predict.Nothing,
				},
			},
			"aggregate": {
				Flags: map[string]complete.Predictor{
					"locale": locales,
					"json":   predict.Nothing,
				},
				Args: predict.Files("*.json"),
			},
			"format": {
				Flags: map[string]complete.Predictor{
					"currency": predict.Set{"USD", "EUR", "GBP", "CHF", "JPY", "CAD"},
					"locale":   locales,
					"quantity": predict.Nothing,
				},
			},
			"serve": {
				Flags: map[string]complete.Predictor{"addr": predict.Something},
			},
			"assist": {
				Flags: map[string]complete.Predictor{"model": predict.Set{"gemini-2.5-flash", "gemini-2.5-pro"}},
			},
			"topic": {
				Flags: map[string]complete.Predictor{"list": predict.Nothing},
				Args:  predict.Set{"readme", "holdings", "currency", "config", "server"},
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}
