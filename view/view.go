// Package view holds the state of a holdings screen: it loads raw holdings
// through the query cache, aggregates them and keeps display-ready rows.
package view

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/query"
	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a View.
type Status int

const (
	Loading Status = iota
	Error
	Empty
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Source fetches the raw holdings of a session.
type Source interface {
	FetchHoldings(ctx context.Context, s backend.Session) ([]neufin.RawHolding, error)
}

// Cache is the query cache shared by the views of a process.
type Cache = query.Client[[]neufin.RawHolding]

// NewCache returns a holdings cache.
func NewCache(opts ...query.Option) *Cache {
	return query.New[[]neufin.RawHolding](opts...)
}

// Row is one aggregated holding with its display strings.
type Row struct {
	Holding neufin.AggregatedHolding
	// Quantity has four fraction digits.
	Quantity string
	// AveragePrice and Value are formatted in the holding currency.
	AveragePrice string
	Value        string
}

// State is a snapshot of a View.
type State struct {
	Status Status
	Rows   []Row
	// Err is set in the Error status only.
	Err       error
	FetchedAt time.Time
	// Stale reports that the rows are older than the staleness window and
	// a background refetch is under way.
	Stale bool
	// Fetching reports a foreground fetch in flight.
	Fetching bool
}

// View is the holdings screen of one session.
type View struct {
	source  Source
	cache   *Cache
	session backend.Session
	key     query.Key
	locale  string
	logger  zerolog.Logger

	mu        sync.Mutex
	state     State
	closed    bool
	listeners []func(State)
	observer  *query.Observer[[]neufin.RawHolding]
}

// Option configures a View.
type Option func(*View)

// WithLocale sets the locale of display strings.
func WithLocale(locale string) Option {
	return func(v *View) { v.locale = locale }
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *View) { v.logger = logger }
}

// New returns a View in the Loading status. It follows background refetches
// of the session's holdings until Close.
func New(source Source, cache *Cache, session backend.Session, opts ...Option) *View {
	v := &View{
		source:  source,
		cache:   cache,
		session: session,
		key:     query.HoldingsKey(session.Scope()),
		locale:  neufin.DefaultLocale,
		logger:  zerolog.Nop(),
		state:   State{Status: Loading},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.observer = cache.Observe(v.key, func(res query.Result[[]neufin.RawHolding]) {
		v.update(func(s *State) { v.applyResult(s, res) })
	})
	return v
}

func (v *View) fetch(ctx context.Context) ([]neufin.RawHolding, error) {
	return v.source.FetchHoldings(ctx, v.session)
}

// Load shows the cached holdings, fetching them when the cache has none.
func (v *View) Load(ctx context.Context) State {
	return v.run(ctx, v.cache.Get)
}

// Refresh refetches the holdings from the source. The current rows stay
// visible until the fetch completes.
func (v *View) Refresh(ctx context.Context) State {
	return v.run(ctx, v.cache.Refetch)
}

type loader func(context.Context, query.Key, query.Fetcher[[]neufin.RawHolding]) (query.Result[[]neufin.RawHolding], error)

func (v *View) run(ctx context.Context, load loader) State {
	if !v.update(func(s *State) {
		s.Fetching = true
		if s.Status == Error {
			s.Status, s.Err = Loading, nil
		}
	}) {
		return v.State()
	}

	res, err := load(ctx, v.key, v.fetch)

	v.update(func(s *State) {
		s.Fetching = false
		if err != nil {
			v.logger.Warn().Err(err).Msg("Failed to load holdings")
			*s = State{Status: Error, Err: err}
			return
		}
		v.applyResult(s, res)
	})
	return v.State()
}

// applyResult aggregates res into s. Results older than the rows shown are
// ignored.
func (v *View) applyResult(s *State, res query.Result[[]neufin.RawHolding]) {
	if (s.Status == Ready || s.Status == Empty) && res.FetchedAt.Before(s.FetchedAt) {
		return
	}
	rows := Rows(neufin.Aggregate(res.Data), v.locale)
	status := Ready
	if len(rows) == 0 {
		status = Empty
	}
	s.Status = status
	s.Rows = rows
	s.Err = nil
	s.FetchedAt = res.FetchedAt
	s.Stale = res.Stale
}

// update applies fn to the state and notifies listeners. It reports false,
// without applying fn, once the view is closed.
func (v *View) update(fn func(*State)) bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	fn(&v.state)
	snapshot := v.state
	listeners := slices.Clone(v.listeners)
	v.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return true
}

// State returns the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnChange registers fn to be called with each new state. fn must not
// call Close.
func (v *View) OnChange(fn func(State)) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Close detaches the view. Results of fetches still in flight are discarded
// and the state no longer changes.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.listeners = nil
	v.mu.Unlock()
	v.observer.Close()
}

// Rows formats aggregated holdings for display in locale.
func Rows(holdings []neufin.AggregatedHolding, locale string) []Row {
	rows := make([]Row, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, Row{
			Holding:      h,
			Quantity:     neufin.FormatQuantity(h.TotalQuantity),
			AveragePrice: neufin.FormatCurrency(h.AveragePrice, h.Currency, locale),
			Value:        neufin.FormatCurrency(h.TotalValue, h.Currency, locale),
		})
	}
	return rows
}
