// Package query caches the results of keyed fetches for a bounded staleness
// window and refetches stale entries in the background.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a successful result is served without a refetch.
const DefaultStaleTime = 5 * time.Minute

// DefaultBackgroundTimeout bounds a fetch once it runs detached from its
// callers: background refetches and fetches shared by several callers.
const DefaultBackgroundTimeout = 30 * time.Second

// Key identifies a cached query. Keys are explicit: two queries share a
// cache entry only if their keys are equal.
type Key string

// HoldingsKey is the key of the holdings of the user identified by scope.
func HoldingsKey(scope string) Key { return Key("holdings/" + scope) }

// Fetcher loads the value of a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Result is a cached value and its age.
type Result[T any] struct {
	Data      T
	FetchedAt time.Time
	// Stale is set when Data is older than the stale time. A background
	// refetch has been started for it.
	Stale bool
}

type entry[T any] struct {
	data       T
	fetchedAt  time.Time
	refreshing bool
}

// Client is an in-memory query cache. It is safe for concurrent use.
type Client[T any] struct {
	staleTime         time.Duration
	backgroundTimeout time.Duration
	now               func() time.Time
	logger            zerolog.Logger

	mu        sync.Mutex
	entries   map[Key]*entry[T]
	observers map[Key]map[*Observer[T]]struct{}

	group singleflight.Group
	wg    sync.WaitGroup
}

// Option configures a Client.
type Option func(*options)

type options struct {
	staleTime         time.Duration
	backgroundTimeout time.Duration
	now               func() time.Time
	logger            zerolog.Logger
}

// WithStaleTime sets the staleness window. Zero or negative means every
// cached result is stale.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithBackgroundTimeout bounds background refetches and shared fetches.
func WithBackgroundTimeout(d time.Duration) Option {
	return func(o *options) { o.backgroundTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used to report background refetch failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns an empty cache.
func New[T any](opts ...Option) *Client[T] {
	o := options{
		staleTime:         DefaultStaleTime,
		backgroundTimeout: DefaultBackgroundTimeout,
		now:               time.Now,
		logger:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client[T]{
		staleTime:         o.staleTime,
		backgroundTimeout: o.backgroundTimeout,
		now:               o.now,
		logger:            o.logger,
		entries:           make(map[Key]*entry[T]),
		observers:         make(map[Key]map[*Observer[T]]struct{}),
	}
}

// StaleTime returns the staleness window.
func (c *Client[T]) StaleTime() time.Duration { return c.staleTime }

func (c *Client[T]) isFresh(e *entry[T]) bool {
	return c.now().Sub(e.fetchedAt) < c.staleTime
}

// Get returns the value of key.
//
// A fresh cached value is returned as is. A stale one is returned flagged
// Stale and a single background refetch is started; Get never waits for it.
// Without a cached value, Get calls fetch, sharing the call with any
// concurrent Get or Refetch of the same key. Errors are returned and never
// cached.
func (c *Client[T]) Get(ctx context.Context, key Key, fetch Fetcher[T]) (Result[T], error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		res := Result[T]{Data: e.data, FetchedAt: e.fetchedAt}
		if !c.isFresh(e) {
			res.Stale = true
			if !e.refreshing {
				e.refreshing = true
				c.wg.Add(1)
				go c.refreshInBackground(key, fetch)
			}
		}
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	return c.load(ctx, key, fetch)
}

// Refetch always calls fetch, sharing the call with concurrent loads of the
// same key, and stores a successful result. On error the cached value, if
// any, is kept.
func (c *Client[T]) Refetch(ctx context.Context, key Key, fetch Fetcher[T]) (Result[T], error) {
	return c.load(ctx, key, fetch)
}

func (c *Client[T]) load(ctx context.Context, key Key, fetch Fetcher[T]) (Result[T], error) {
	ch := c.group.DoChan(string(key), func() (any, error) {
		// Shared by every caller of key: the first caller leaving must not
		// cancel it for the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.backgroundTimeout)
		defer cancel()

		data, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		return c.store(key, data), nil
	})

	select {
	case <-ctx.Done():
		var zero Result[T]
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			var zero Result[T]
			return zero, r.Err
		}
		return r.Val.(Result[T]), nil
	}
}

func (c *Client[T]) refreshInBackground(key Key, fetch Fetcher[T]) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			e.refreshing = false
		}
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.backgroundTimeout)
	defer cancel()

	if _, err := c.load(ctx, key, fetch); err != nil {
		c.logger.Warn().Err(err).Str("key", string(key)).Msg("Background refetch failed")
		return
	}
	c.logger.Debug().Str("key", string(key)).Msg("Background refetch completed")
}

// store records a successful result and notifies the observers of key.
func (c *Client[T]) store(key Key, data T) Result[T] {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	e.data = data
	e.fetchedAt = c.now()
	res := Result[T]{Data: e.data, FetchedAt: e.fetchedAt}

	observers := make([]*Observer[T], 0, len(c.observers[key]))
	for o := range c.observers[key] {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	for _, o := range observers {
		o.deliver(res)
	}
	return res
}

// Peek returns the cached value of key without fetching.
func (c *Client[T]) Peek(key Key) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[T]{}, false
	}
	return Result[T]{Data: e.data, FetchedAt: e.fetchedAt, Stale: !c.isFresh(e)}, true
}

// Invalidate drops the cached value of key. The next Get fetches.
func (c *Client[T]) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Wait blocks until all background refetches started so far have finished.
func (c *Client[T]) Wait() { c.wg.Wait() }

// Observe registers fn to receive every new successful result stored for key,
// whether it comes from Get, Refetch or a background refetch.
func (c *Client[T]) Observe(key Key, fn func(Result[T])) *Observer[T] {
	o := &Observer[T]{client: c, key: key, fn: fn}
	c.mu.Lock()
	set, ok := c.observers[key]
	if !ok {
		set = make(map[*Observer[T]]struct{})
		c.observers[key] = set
	}
	set[o] = struct{}{}
	c.mu.Unlock()
	return o
}

// Observer is a registration made by Observe.
type Observer[T any] struct {
	client *Client[T]
	key    Key
	fn     func(Result[T])

	mu     sync.Mutex
	closed bool
}

func (o *Observer[T]) deliver(res Result[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.fn(res)
}

// Close unregisters the observer. Once Close returns, fn is never called
// again, even for fetches that were in flight. Close must not be called
// from fn.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	c := o.client
	c.mu.Lock()
	if set, ok := c.observers[o.key]; ok {
		delete(set, o)
		if len(set) == 0 {
			delete(c.observers, o.key)
		}
	}
	c.mu.Unlock()
}
