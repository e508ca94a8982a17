package backend

import (
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/rs/zerolog"
)

// loggingTransport dumps backend responses at trace level. Request headers
// carry the session and are never dumped.
type loggingTransport struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

// WithTransport sets the round tripper of the default HTTP client.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// LoggingTransport wraps base, http.DefaultTransport when nil, to log
// responses to logger at trace level. The client itself logs each request
// at debug level.
func LoggingTransport(base http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Trace().Err(err).
			Str("method", req.Method).
			Str("host", req.URL.Host).
			Str("path", req.URL.Path).
			Msg("HTTP request failed")
		return nil, err
	}
	if t.logger.GetLevel() > zerolog.TraceLevel {
		return resp, nil
	}

	ev := t.logger.Trace().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Str("status", resp.Status).
		Dur("elapsed", time.Since(start))
	if dump, err := httputil.DumpResponse(resp, true); err == nil {
		ev = ev.Bytes("response", dump)
	}
	ev.Msg("HTTP response")
	return resp, nil
}
