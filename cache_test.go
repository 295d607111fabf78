package marketwatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeProvider replays a scripted sequence of responses and counts calls.
type fakeProvider struct {
	calls  int
	tables []*Table
	errs   []error
}

func (p *fakeProvider) Fetch(ctx context.Context, req Request) (*Table, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.tables) {
		return p.tables[i], nil
	}
	return nil, fmt.Errorf("unexpected call %d", i)
}

// newTestCache wires a cache with a fixed clock and a sleep that records
// the waits instead of waiting.
func newTestCache(p Provider, store Store, ttl time.Duration, clock *time.Time, waits *[]time.Duration) *Cache {
	c := NewCache(p, store, ttl)
	c.now = func() time.Time { return *clock }
	c.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	return c
}

func TestCacheHitSkipsProvider(t *testing.T) {
	ctx := context.Background()
	clock := day(0)
	var waits []time.Duration

	provider := &fakeProvider{tables: []*Table{tableOf("AAA", P(100), P(101))}}
	cache := newTestCache(provider, NewFileStore(t.TempDir()), 24*time.Hour, &clock, &waits)
	req := Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"}

	first, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d after first Get, want 1", provider.calls)
	}

	clock = clock.Add(time.Hour)
	second, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d after cache hit, want 1", provider.calls)
	}
	if second.Len() != first.Len() {
		t.Errorf("cached table has %d rows, want %d", second.Len(), first.Len())
	}
}

func TestCacheGetReturnsPrivateCopy(t *testing.T) {
	ctx := context.Background()
	clock := day(0)
	var waits []time.Duration

	provider := &fakeProvider{tables: []*Table{tableOf("AAA", P(100), P(101))}}
	cache := newTestCache(provider, NewFileStore(t.TempDir()), 24*time.Hour, &clock, &waits)
	req := Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"}

	first, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	// Mutating the returned table must not leak into the cached snapshot.
	first.Append(day(5), map[string]Price{"AAA": P(999)})

	second, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if second.Len() != 2 {
		t.Errorf("cached table has %d rows after mutating a returned copy, want 2", second.Len())
	}
}

func TestCacheSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	clock := day(0)
	var waits []time.Duration
	dir := t.TempDir()
	req := Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"}

	warm := newTestCache(&fakeProvider{tables: []*Table{tableOf("AAA", P(100), Missing(), P(102))}},
		NewFileStore(dir), 24*time.Hour, &clock, &waits)
	if _, err := warm.Get(ctx, req); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	// A fresh cache over the same directory serves the snapshot without
	// touching the provider.
	cold := &fakeProvider{}
	reopened := newTestCache(cold, NewFileStore(dir), 24*time.Hour, &clock, &waits)
	table, err := reopened.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if cold.calls != 0 {
		t.Errorf("provider calls = %d after reopening, want 0", cold.calls)
	}
	if table.Len() != 3 {
		t.Errorf("reloaded table has %d rows, want 3", table.Len())
	}
	if p := table.price("AAA", 1); p.Valid() {
		t.Errorf("reloaded price(AAA, 1) = %s, want missing", p.Value())
	}
	if p := table.price("AAA", 2); !p.Valid() || p.Value().IntPart() != 102 {
		t.Errorf("reloaded price(AAA, 2) = %v %s, want 102", p.Valid(), p.Value())
	}
}

func TestCacheExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	clock := day(0)
	var waits []time.Duration

	boom := errors.New("upstream down")
	provider := &fakeProvider{errs: []error{boom, boom, boom}}
	cache := newTestCache(provider, NewFileStore(t.TempDir()), 24*time.Hour, &clock, &waits)

	_, err := cache.Get(ctx, Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Get() error = %v, want %v", err, ErrFetchFailed)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	// Two waits between three attempts, doubling from one second.
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("backoff waits = %v, want [1s 2s]", waits)
	}
}

func TestCacheServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	clock := day(0)
	var waits []time.Duration
	req := Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"}

	boom := errors.New("upstream down")
	provider := &fakeProvider{
		tables: []*Table{tableOf("AAA", P(100))},
		errs:   []error{nil, boom, boom, boom},
	}
	cache := newTestCache(provider, NewFileStore(t.TempDir()), 24*time.Hour, &clock, &waits)

	if _, err := cache.Get(ctx, req); err != nil {
		t.Fatalf("warmup Get() unexpected error: %v", err)
	}

	// Past the TTL every attempt fails; the stale snapshot is served.
	clock = clock.Add(48 * time.Hour)
	table, err := cache.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("stale table has %d rows, want 1", table.Len())
	}
	if provider.calls != 4 {
		t.Errorf("provider calls = %d, want 4", provider.calls)
	}
}

func TestCacheRejectsIncompleteTables(t *testing.T) {
	testCases := []struct {
		name  string
		table *Table
	}{
		{name: "empty series", table: NewTable()},
		{name: "missing instrument column", table: tableOf("AAA", P(100))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := day(0)
			var waits []time.Duration

			provider := &fakeProvider{tables: []*Table{tc.table, tc.table, tc.table}}
			cache := newTestCache(provider, NewFileStore(t.TempDir()), 24*time.Hour, &clock, &waits)

			_, err := cache.Get(ctx, Request{Instruments: []string{"AAA", "BBB"}, Interval: "1d", Period: "2y"})
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("Get() error = %v, want %v", err, ErrFetchFailed)
			}
			if provider.calls != 3 {
				t.Errorf("provider calls = %d, want 3", provider.calls)
			}
		})
	}
}

func TestRequestKey(t *testing.T) {
	base := Request{Instruments: []string{"AAA", "BBB"}, Interval: "1d", Period: "2y"}

	testCases := []struct {
		name   string
		req    Request
		expect bool // same key as base
	}{
		{name: "identical", req: Request{Instruments: []string{"AAA", "BBB"}, Interval: "1d", Period: "2y"}, expect: true},
		{name: "order independent", req: Request{Instruments: []string{"BBB", "AAA"}, Interval: "1d", Period: "2y"}, expect: true},
		{name: "duplicates collapse", req: Request{Instruments: []string{"AAA", "BBB", "AAA"}, Interval: "1d", Period: "2y"}, expect: true},
		{name: "different instruments", req: Request{Instruments: []string{"AAA"}, Interval: "1d", Period: "2y"}, expect: false},
		{name: "different interval", req: Request{Instruments: []string{"AAA", "BBB"}, Interval: "1wk", Period: "2y"}, expect: false},
		{name: "different period", req: Request{Instruments: []string{"AAA", "BBB"}, Interval: "1d", Period: "1y"}, expect: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if same := tc.req.Key() == base.Key(); same != tc.expect {
				t.Errorf("Key() equality = %v, want %v", same, tc.expect)
			}
		})
	}
}
