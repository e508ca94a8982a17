package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neufin/neufin"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/query"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	holdings []neufin.RawHolding
	err      error
	calls    int
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeSource) FetchHoldings(ctx context.Context, s backend.Session) ([]neufin.RawHolding, error) {
	f.mu.Lock()
	f.calls++
	holdings, err, block, started := f.holdings, f.err, f.block, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return holdings, err
}

var session = backend.Session{Token: "secret"}

func appleHoldings() []neufin.RawHolding {
	return []neufin.RawHolding{
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1850), CurrentPrice: neufin.Some(185)},
		{Symbol: "AAPL", Name: "Apple Inc.", Quantity: neufin.Some(5), InstitutionValue: neufin.Some(920), InstitutionPrice: neufin.Some(184)},
	}
}

func TestView_StartsLoading(t *testing.T) {
	v := New(&fakeSource{}, NewCache(), session)
	defer v.Close()

	assert.Equal(t, Loading, v.State().Status)
}

func TestView_Ready(t *testing.T) {
	v := New(&fakeSource{holdings: appleHoldings()}, NewCache(), session)
	defer v.Close()

	st := v.Load(context.Background())

	require.Equal(t, Ready, st.Status)
	require.Len(t, st.Rows, 1)
	row := st.Rows[0]
	assert.Equal(t, "AAPL", row.Holding.Symbol)
	assert.Equal(t, "15.0000", row.Quantity)
	assert.Equal(t, "$184.67", row.AveragePrice)
	assert.Equal(t, "$2,770.00", row.Value)
	assert.False(t, st.Fetching)
	assert.False(t, st.Stale)
	assert.NoError(t, st.Err)
}

func TestView_Locale(t *testing.T) {
	src := &fakeSource{holdings: []neufin.RawHolding{
		{Symbol: "SAP", Quantity: neufin.Some(10), CurrentValue: neufin.Some(1234.5), ISOCurrencyCode: "EUR"},
	}}
	v := New(src, NewCache(), session, WithLocale("de-DE"))
	defer v.Close()

	st := v.Load(context.Background())

	require.Len(t, st.Rows, 1)
	assert.Equal(t, "1.234,50\u00a0€", st.Rows[0].Value)
	assert.Equal(t, "123,45\u00a0€", st.Rows[0].AveragePrice)
}

func TestView_Empty(t *testing.T) {
	v := New(&fakeSource{holdings: []neufin.RawHolding{}}, NewCache(), session)
	defer v.Close()

	st := v.Load(context.Background())

	assert.Equal(t, Empty, st.Status)
	assert.Empty(t, st.Rows)
	assert.NoError(t, st.Err)
}

func TestView_Error(t *testing.T) {
	boom := errors.New("backend down")
	v := New(&fakeSource{err: boom}, NewCache(), session)
	defer v.Close()

	st := v.Load(context.Background())

	assert.Equal(t, Error, st.Status)
	assert.ErrorIs(t, st.Err, boom)
	assert.Nil(t, st.Rows, "no aggregation on failure")
}

func TestView_LoadUsesCache(t *testing.T) {
	cache := NewCache()
	src := &fakeSource{holdings: appleHoldings()}

	first := New(src, cache, session)
	first.Load(context.Background())
	first.Close()

	second := New(src, cache, session)
	defer second.Close()
	st := second.Load(context.Background())

	assert.Equal(t, Ready, st.Status)
	assert.Equal(t, 1, src.calls)
}

func TestView_SessionsDoNotShareCache(t *testing.T) {
	cache := NewCache()
	src := &fakeSource{holdings: appleHoldings()}

	a := New(src, cache, backend.Session{Token: "alice"})
	defer a.Close()
	b := New(src, cache, backend.Session{Token: "bob"})
	defer b.Close()

	a.Load(context.Background())
	b.Load(context.Background())

	assert.Equal(t, 2, src.calls)
}

func TestView_RefreshRefetches(t *testing.T) {
	src := &fakeSource{holdings: appleHoldings()}
	v := New(src, NewCache(), session)
	defer v.Close()

	v.Load(context.Background())
	src.mu.Lock()
	src.holdings = nil
	src.mu.Unlock()
	st := v.Refresh(context.Background())

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, Empty, st.Status)
}

func TestView_RecoversFromError(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	v := New(src, NewCache(), session)
	defer v.Close()

	require.Equal(t, Error, v.Load(context.Background()).Status)

	src.mu.Lock()
	src.err = nil
	src.holdings = appleHoldings()
	src.mu.Unlock()

	assert.Equal(t, Ready, v.Refresh(context.Background()).Status)
}

func TestView_FollowsBackgroundRefetch(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	cache := NewCache(query.WithClock(clock), query.WithStaleTime(time.Minute))
	src := &fakeSource{holdings: appleHoldings()}
	v := New(src, cache, session)
	defer v.Close()

	v.Load(context.Background())
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	src.mu.Lock()
	src.holdings = append(appleHoldings(), neufin.RawHolding{Symbol: "MSFT", Quantity: neufin.Some(1), CurrentValue: neufin.Some(400)})
	src.block = make(chan struct{})
	src.mu.Unlock()

	st := v.Load(context.Background())
	assert.True(t, st.Stale)
	assert.Len(t, st.Rows, 1)

	close(src.block)
	cache.Wait()
	st = v.State()
	assert.False(t, st.Stale)
	assert.Len(t, st.Rows, 2)
}

func TestView_CloseDiscardsInFlightResult(t *testing.T) {
	src := &fakeSource{
		holdings: appleHoldings(),
		block:    make(chan struct{}),
		started:  make(chan struct{}),
	}
	v := New(src, NewCache(), session)

	var changes int
	v.OnChange(func(State) { changes++ })

	done := make(chan State)
	go func() { done <- v.Load(context.Background()) }()

	<-src.started
	v.Close()
	before := changes
	close(src.block)
	st := <-done

	assert.Equal(t, Loading, st.Status)
	assert.Equal(t, before, changes)
	assert.Equal(t, Loading, v.State().Status)
}

func TestView_OnChange(t *testing.T) {
	v := New(&fakeSource{holdings: appleHoldings()}, NewCache(), session)
	defer v.Close()

	var statuses []Status
	v.OnChange(func(s State) { statuses = append(statuses, s.Status) })
	v.Load(context.Background())

	require.NotEmpty(t, statuses)
	assert.Equal(t, Loading, statuses[0])
	assert.Equal(t, Ready, statuses[len(statuses)-1])
}

func TestView_OnChangeFromListener(t *testing.T) {
	v := New(&fakeSource{holdings: appleHoldings()}, NewCache(), session)
	defer v.Close()

	var first, second []Status
	v.OnChange(func(s State) {
		if len(first) == 0 {
			v.OnChange(func(s State) { second = append(second, s.Status) })
		}
		first = append(first, s.Status)
	})
	v.Load(context.Background())

	require.NotEmpty(t, first)
	assert.Equal(t, Loading, first[0])
	assert.Equal(t, Ready, first[len(first)-1])
	assert.Equal(t, first[1:], second, "a listener added while notifying starts with the next change")
}

func TestRows(t *testing.T) {
	rows := Rows([]neufin.AggregatedHolding{
		{Symbol: "X", TotalQuantity: decimal.RequireFromString("0.12345"), AveragePrice: decimal.Zero, TotalValue: decimal.Zero, Currency: "JPY"},
	}, "en-US")

	require.Len(t, rows, 1)
	assert.Equal(t, "0.1235", rows[0].Quantity)
	assert.Equal(t, "¥0.00", rows[0].Value)
}
