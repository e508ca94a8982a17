package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/renderer"
	"github.com/neufin/neufin/view"
)

// holdingResponse is one aggregated holding. Amounts are exact JSON numbers;
// display strings are formatted for the request locale.
type holdingResponse struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	TotalQuantity json.Number     `json:"totalQuantity"`
	AveragePrice  json.Number     `json:"averagePrice"`
	TotalValue    json.Number     `json:"totalValue"`
	Display       displayResponse `json:"display"`
}

type displayResponse struct {
	Quantity     string `json:"quantity"`
	AveragePrice string `json:"averagePrice"`
	Value        string `json:"value"`
}

type holdingsResponse struct {
	Status    string            `json:"status"`
	Holdings  []holdingResponse `json:"holdings"`
	Error     string            `json:"error,omitempty"`
	FetchedAt *time.Time        `json:"fetchedAt,omitempty"`
	Stale     bool              `json:"stale"`
	Locale    string            `json:"locale"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "neufin",
	})
}

// handleGetHoldings returns the aggregated holdings of the caller.
func (s *Server) handleGetHoldings(w http.ResponseWriter, r *http.Request) {
	s.serveHoldings(w, r, (*view.View).Load)
}

// handleRefreshHoldings refetches the holdings of the caller.
func (s *Server) handleRefreshHoldings(w http.ResponseWriter, r *http.Request) {
	s.serveHoldings(w, r, (*view.View).Refresh)
}

type loadFunc func(*view.View, context.Context) view.State

func (s *Server) serveHoldings(w http.ResponseWriter, r *http.Request, load loadFunc) {
	locale := s.requestLocale(r)
	st, status := s.holdingsState(r, locale, load)
	s.writeJSON(w, status, newHoldingsResponse(st, locale))
}

// handleHoldingsPage renders the holdings of the caller as an HTML page.
func (s *Server) handleHoldingsPage(w http.ResponseWriter, r *http.Request) {
	locale := s.requestLocale(r)
	st, status := s.holdingsState(r, locale, (*view.View).Load)

	md := renderer.RenderHoldings(renderer.NewHoldings(st, locale))
	page, err := renderer.HTMLPage("Holdings", md)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to render holdings page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(page))
}

// holdingsState loads the holdings view of the request session and returns
// it with the matching HTTP status.
func (s *Server) holdingsState(r *http.Request, locale string, load loadFunc) (view.State, int) {
	session := backend.SessionFromRequest(r, s.sessionCookie)
	if session.IsZero() {
		return view.State{Status: view.Error, Err: backend.ErrNoSession}, http.StatusUnauthorized
	}

	v := view.New(s.source, s.cache, session, view.WithLocale(locale), view.WithLogger(s.log))
	defer v.Close()

	st := load(v, r.Context())
	return st, statusCode(st)
}

// statusCode maps a view state to an HTTP status.
func statusCode(st view.State) int {
	if st.Status != view.Error {
		return http.StatusOK
	}
	switch {
	case errors.Is(st.Err, backend.ErrUnauthorized), errors.Is(st.Err, backend.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(st.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// requestLocale picks the display locale: the locale query parameter, then
// Accept-Language, then the server default.
func (s *Server) requestLocale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" && neufin.ValidLocale(l) {
		return l
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		return neufin.MatchLocale(al)
	}
	return s.locale
}

func newHoldingsResponse(st view.State, locale string) holdingsResponse {
	resp := holdingsResponse{
		Status:   st.Status.String(),
		Holdings: make([]holdingResponse, 0, len(st.Rows)),
		Stale:    st.Stale,
		Locale:   locale,
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	if !st.FetchedAt.IsZero() {
		t := st.FetchedAt.UTC()
		resp.FetchedAt = &t
	}
	for _, row := range st.Rows {
		h := row.Holding
		resp.Holdings = append(resp.Holdings, holdingResponse{
			Symbol:        h.Symbol,
			Name:          h.Name,
			Currency:      h.Currency,
			TotalQuantity: json.Number(h.TotalQuantity.String()),
			AveragePrice:  json.Number(h.AveragePrice.String()),
			TotalValue:    json.Number(h.TotalValue.String()),
			Display: displayResponse{
				Quantity:     row.Quantity,
				AveragePrice: row.AveragePrice,
				Value:        row.Value,
			},
		})
	}
	return resp
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
