// Package neufin provides the holdings domain of the Neufin dashboard: the
// raw brokerage positions received from the backend, their aggregation into
// one row per ticker symbol, and the money formatting used to display them.
//
// The core functionalities include:
//   - Decoding: reading holdings payloads whose field naming is not
//     consistent (camelCase, snake_case, nested securities, envelopes),
//     see DecodeHoldings.
//   - Aggregation: a pure group-by-symbol over raw holdings that resolves
//     current versus institution valuations per record, see Aggregate.
//   - Formatting: localized currency strings with exactly two fraction
//     digits, see FormatCurrency and Money.
//
// Fetching, caching and presenting holdings live in the backend, query, view
// and renderer packages. This package does no I/O beyond reading the
// io.Reader handed to DecodeHoldings.
package neufin
