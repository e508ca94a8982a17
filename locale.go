package neufin

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale, or an unparseable one, is given.
const DefaultLocale = "en-US"

// numberFormat describes how a locale writes a currency amount.
type numberFormat struct {
	decimal  string
	thousand string
	// symbolAfter writes "1.234,50 €" instead of "€1,234.50".
	symbolAfter bool
	// spaced separates a leading symbol from the amount: "€ 1.234,50".
	spaced bool
}

const (
	nbsp       = "\u00a0"
	narrowNbsp = "\u202f"
)

var (
	usFormat = numberFormat{decimal: ".", thousand: ","}

	// languageFormats is keyed by base language.
	languageFormats = map[string]numberFormat{
		"en": usFormat,
		"ja": usFormat,
		"ko": usFormat,
		"zh": usFormat,
		"de": {decimal: ",", thousand: ".", symbolAfter: true},
		"es": {decimal: ",", thousand: ".", symbolAfter: true},
		"it": {decimal: ",", thousand: ".", symbolAfter: true},
		"pt": {decimal: ",", thousand: nbsp, symbolAfter: true},
		"nl": {decimal: ",", thousand: ".", spaced: true},
		"fr": {decimal: ",", thousand: narrowNbsp, symbolAfter: true},
		"sv": {decimal: ",", thousand: nbsp, symbolAfter: true},
		"pl": {decimal: ",", thousand: nbsp, symbolAfter: true},
		"ru": {decimal: ",", thousand: nbsp, symbolAfter: true},
	}

	// regionFormats overrides languageFormats for a language-region pair.
	regionFormats = map[string]numberFormat{
		"de-CH": {decimal: ".", thousand: "\u2019", spaced: true},
		"es-MX": usFormat,
		"es-US": usFormat,
		"pt-BR": {decimal: ",", thousand: ".", spaced: true},
	}

	// supportedLocales feeds the Accept-Language matcher, default first.
	supportedLocales = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Spanish,
		language.Italian,
		language.Portuguese,
		language.BrazilianPortuguese,
		language.Dutch,
		language.Swedish,
		language.Polish,
		language.Russian,
		language.Japanese,
		language.Korean,
		language.Chinese,
	}
	localeMatcher = language.NewMatcher(supportedLocales)
)

// parseLocale parses a BCP 47 locale, accepting "en_US" style too.
func parseLocale(locale string) (language.Tag, bool) {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return language.AmericanEnglish, false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.AmericanEnglish, false
	}
	return tag, true
}

// formatFor returns the number format of a locale, en-US when unknown.
func formatFor(locale string) numberFormat {
	tag, _ := parseLocale(locale)
	base, _ := tag.Base()
	if region, conf := tag.Region(); conf == language.Exact {
		if f, ok := regionFormats[base.String()+"-"+region.String()]; ok {
			return f
		}
	}
	if f, ok := languageFormats[base.String()]; ok {
		return f
	}
	return usFormat
}

// ValidLocale reports whether locale parses as a BCP 47 tag.
func ValidLocale(locale string) bool {
	_, ok := parseLocale(locale)
	return ok
}

// MatchLocale picks the best supported locale for an Accept-Language header
// value. It returns DefaultLocale when nothing matches.
func MatchLocale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	return supportedLocales[index].String()
}
