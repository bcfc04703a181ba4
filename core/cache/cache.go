// Package cache holds committed analyses keyed by fingerprint and coordinates
// in-flight computations so each fingerprint is computed at most once at a time.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Lease is the reservation for one fingerprint. The owner resolves it with
// Commit or Abort; every other holder waits on it and replays the outcome.
type Lease struct {
	fingerprint string
	done        chan struct{}
	result      *schema.RepositoryAnalysis
	err         error
}

// Fingerprint returns the reserved key.
func (l *Lease) Fingerprint() string {
	return l.fingerprint
}

// Done is closed once the lease is resolved.
func (l *Lease) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the lease is resolved or ctx ends. The returned analysis is a private copy.
func (l *Lease) Wait(ctx context.Context) (*schema.RepositoryAnalysis, error) {
	select {
	case <-l.done:
		if l.err != nil {
			return nil, l.err
		}
		return l.result.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newLease(fp string) *Lease {
	return &Lease{fingerprint: fp, done: make(chan struct{})}
}

// entry is a committed analysis. A non-zero expiresAt ends its life before the
// LRU's own TTL would.
type entry struct {
	analysis  *schema.RepositoryAnalysis
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// ResultCache maps fingerprints to committed analyses with TTL and LRU eviction.
type ResultCache struct {
	mu       sync.Mutex
	entries  *expirable.LRU[string, *entry]
	inflight map[string]*Lease
	capacity int
	ttl      time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	joins     atomic.Int64
	evictions atomic.Int64
	removing  atomic.Bool
	warmStart int
}

// New creates a ResultCache. A capacity of 0 is unbounded and a ttl <= 0 never expires.
func New(capacity int, ttl time.Duration) *ResultCache {
	c := &ResultCache{
		inflight: make(map[string]*Lease),
		capacity: capacity,
		ttl:      ttl,
	}
	c.entries = expirable.NewLRU(capacity, c.onEvict, ttl)
	return c
}

func (c *ResultCache) onEvict(_ string, _ *entry) {
	if !c.removing.Load() {
		c.evictions.Add(1)
	}
}

// Get returns a copy of the committed analysis for fp.
func (c *ResultCache) Get(fp string) (*schema.RepositoryAnalysis, bool) {
	c.mu.Lock()
	e, ok := c.lookup(fp)
	c.mu.Unlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.analysis.Clone(), true
}

// lookup returns the live entry for fp, dropping it when its own deadline passed.
// Callers hold c.mu.
func (c *ResultCache) lookup(fp string) (*entry, bool) {
	e, ok := c.entries.Get(fp)
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.entries.Remove(fp)
		return nil, false
	}
	return e, true
}

// Reserve returns the lease for fp. The first caller owns it (owner is true);
// later callers receive the same lease and should Wait on it. When fp is
// already committed, a resolved lease carrying the result is returned.
func (c *ResultCache) Reserve(fp string) (lease *Lease, owner bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(fp); ok {
		c.hits.Add(1)
		l := newLease(fp)
		l.result = e.analysis
		close(l.done)
		return l, false
	}
	if existing, ok := c.inflight[fp]; ok {
		c.joins.Add(1)
		return existing, false
	}
	l := newLease(fp)
	c.inflight[fp] = l
	return l, true
}

// Commit stores the result and releases the lease. Committing a lease that is
// no longer in flight returns a CacheReservationConflict and stores nothing.
func (c *ResultCache) Commit(lease *Lease, result *schema.RepositoryAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight[lease.fingerprint] != lease {
		return contract.NewError(schema.CacheReservationConflict, "", "lease for "+lease.fingerprint+" is not in flight")
	}
	stored := result.Clone()
	c.entries.Add(lease.fingerprint, &entry{analysis: stored})
	delete(c.inflight, lease.fingerprint)
	lease.result = stored
	close(lease.done)
	return nil
}

// Abort releases the lease with err. Waiters receive err; nothing is stored.
func (c *ResultCache) Abort(lease *Lease, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight[lease.fingerprint] != lease {
		return
	}
	delete(c.inflight, lease.fingerprint)
	lease.err = err
	close(lease.done)
}

// Seed inserts an analysis committed earlier, without a lease. remaining is what
// is left of its TTL; it is ignored when the cache never expires. Seeding never
// replaces an in-flight reservation and rejects entries with no lifetime left.
func (c *ResultCache) Seed(fp string, analysis *schema.RepositoryAnalysis, remaining time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[fp]; busy {
		return false
	}
	e := &entry{analysis: analysis.Clone()}
	if c.ttl > 0 {
		if remaining <= 0 {
			return false
		}
		if remaining < c.ttl {
			e.expiresAt = time.Now().Add(remaining)
		}
	}
	c.entries.Add(fp, e)
	c.warmStart++
	return true
}

// InvalidateRepo removes every entry whose analysis belongs to repoID.
func (c *ResultCache) InvalidateRepo(repoID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removing.Store(true)
	defer c.removing.Store(false)

	removed := 0
	for _, fp := range c.entries.Keys() {
		e, ok := c.entries.Peek(fp)
		if ok && e.analysis.ID == repoID {
			c.entries.Remove(fp)
			removed++
		}
	}
	return removed
}

// Purge drops every committed entry. In-flight leases are untouched.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removing.Store(true)
	defer c.removing.Store(false)
	c.entries.Purge()
}

// Len returns the number of committed entries.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}

// TTL returns the configured entry lifetime.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// GetStatus returns cache statistics.
func (c *ResultCache) GetStatus() schema.CacheStatus {
	c.mu.Lock()
	inflight := len(c.inflight)
	warm := c.warmStart
	c.mu.Unlock()

	return schema.CacheStatus{
		Entries:        c.entries.Len(),
		Capacity:       c.capacity,
		TTL:            c.ttl,
		InFlight:       inflight,
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Joins:          c.joins.Load(),
		Evictions:      c.evictions.Load(),
		WarmStartCount: warm,
	}
}
