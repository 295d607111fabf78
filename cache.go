package marketwatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Snapshot is one cached fetch result: the price table and the time it
// was fetched. Freshness is always judged against FetchedAt, never
// delegated to the store.
type Snapshot struct {
	Table     *Table
	FetchedAt time.Time
}

// A Store persists snapshots under a cache key. Save must be atomic from
// a reader's perspective: a concurrent Load returns either the previous
// snapshot or the fully written new one, never a partial entry.
type Store interface {
	// Load returns the snapshot for key, or (nil, nil) when no entry exists.
	Load(ctx context.Context, key string) (*Snapshot, error)
	// Save overwrites the snapshot for key.
	Save(ctx context.Context, key string, snap *Snapshot) error
}

// Cache serves price tables from a durable snapshot store, fetching
// through a Provider on miss or expiry with bounded retries and
// exponential backoff. Entries are only ever overwritten, never removed:
// once a fetch has succeeded, a stale-but-present snapshot always exists
// as a fallback when later fetches exhaust their retries.
type Cache struct {
	provider Provider
	store    Store
	ttl      time.Duration

	attempts int
	backoff  time.Duration

	mu  sync.RWMutex
	mem map[string]*Snapshot

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewCache returns a cache over the given provider and store. Snapshots
// older than ttl are re-fetched; a failed re-fetch degrades to the stale
// snapshot instead of failing the caller.
func NewCache(provider Provider, store Store, ttl time.Duration) *Cache {
	return &Cache{
		provider: provider,
		store:    store,
		ttl:      ttl,
		attempts: 3,
		backoff:  time.Second,
		mem:      make(map[string]*Snapshot),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Get returns the price table for the request, from the cache when the
// stored snapshot is younger than the TTL, otherwise from a fresh fetch.
// Fetching retries up to 3 attempts; the backoff doubles from 1s and only
// separates consecutive attempts, so no wait follows the final failure.
// When every attempt fails, the last successfully fetched snapshot is
// returned if one exists; with no prior snapshot the error wraps
// ErrFetchFailed.
//
// The returned table is the caller's own copy: appending to it never
// mutates the cached snapshot.
func (c *Cache) Get(ctx context.Context, req Request) (*Table, error) {
	key := req.Key()

	prior, err := c.load(ctx, key)
	if err != nil {
		log.Printf("cache read err (ignored): %v", err)
	}
	if prior != nil && c.now().Sub(prior.FetchedAt) < c.ttl {
		return prior.Table.Clone(), nil
	}

	wait := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		table, err := c.fetch(ctx, req)
		if err == nil {
			c.save(ctx, key, &Snapshot{Table: table, FetchedAt: c.now()})
			return table.Clone(), nil
		}
		lastErr = err
		log.Printf("fetch attempt %d/%d failed: %v", attempt, c.attempts, err)
		if attempt < c.attempts {
			c.sleep(wait)
			wait *= 2
		}
	}

	if prior != nil {
		log.Printf("retries exhausted, serving stale snapshot fetched at %s", prior.FetchedAt.Format(time.RFC3339))
		return prior.Table.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
}

// fetch performs one provider call and validates the result: an empty
// table, or a table lacking a close-price column for any requested
// instrument, fails the attempt.
func (c *Cache) fetch(ctx context.Context, req Request) (*Table, error) {
	table, err := c.provider.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("provider returned an empty series")
	}
	for _, instrument := range req.normalized() {
		if !table.Has(instrument) {
			return nil, fmt.Errorf("provider returned no close prices for %s", instrument)
		}
	}
	return table, nil
}

func (c *Cache) load(ctx context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.mem[key]
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	snap, err := c.store.Load(ctx, key)
	if err != nil || snap == nil {
		return nil, err
	}
	c.mu.Lock()
	c.mem[key] = snap
	c.mu.Unlock()
	return snap, nil
}

// save publishes the new snapshot: the in-memory entry is swapped under
// the lock, then the store is written. A store failure does not fail the
// fetch that produced the data.
func (c *Cache) save(ctx context.Context, key string, snap *Snapshot) {
	c.mu.Lock()
	c.mem[key] = snap
	c.mu.Unlock()
	if err := c.store.Save(ctx, key, snap); err != nil {
		log.Printf("cache write err (ignored): %v", err)
	}
}
