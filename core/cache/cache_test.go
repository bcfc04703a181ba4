package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysis(id string) *schema.RepositoryAnalysis {
	return &schema.RepositoryAnalysis{ID: id, Name: id, Languages: []string{"python"}}
}

func TestReserveCommitGet(t *testing.T) {
	c := New(10, time.Hour)

	_, ok := c.Get("fp1")
	assert.False(t, ok)

	lease, owner := c.Reserve("fp1")
	require.True(t, owner)
	assert.Equal(t, "fp1", lease.Fingerprint())

	_, ok = c.Get("fp1")
	assert.False(t, ok, "reserved but uncommitted entries are invisible")

	require.NoError(t, c.Commit(lease, analysis("r1")))

	got, ok := c.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "r1", got.ID)

	got.Languages[0] = "mutated"
	again, _ := c.Get("fp1")
	assert.Equal(t, "python", again.Languages[0], "callers receive copies")

	status := c.GetStatus()
	assert.Equal(t, 1, status.Entries)
	assert.Equal(t, 0, status.InFlight)
	assert.EqualValues(t, 2, status.Hits)
	assert.EqualValues(t, 2, status.Misses)
}

func TestReserveJoinsInFlightLease(t *testing.T) {
	c := New(10, time.Hour)
	ctx := context.Background()

	lease, owner := c.Reserve("fp")
	require.True(t, owner)

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]*schema.RepositoryAnalysis, waiters)
	for i := range waiters {
		joined, isOwner := c.Reserve("fp")
		require.False(t, isOwner)
		require.Same(t, lease, joined)
		wg.Go(func() {
			res, err := joined.Wait(ctx)
			assert.NoError(t, err)
			results[i] = res
		})
	}

	require.NoError(t, c.Commit(lease, analysis("r1")))
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, "r1", res.ID)
	}
	assert.EqualValues(t, waiters, c.GetStatus().Joins)
}

func TestReserveAfterCommitReturnsResolvedLease(t *testing.T) {
	c := New(10, time.Hour)
	lease, _ := c.Reserve("fp")
	require.NoError(t, c.Commit(lease, analysis("r1")))

	again, owner := c.Reserve("fp")
	assert.False(t, owner)
	select {
	case <-again.Done():
	default:
		t.Fatal("lease for a committed entry should already be resolved")
	}
	res, err := again.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ID)
}

func TestAbortReplaysErrorAndStoresNothing(t *testing.T) {
	c := New(10, time.Hour)
	lease, _ := c.Reserve("fp")
	joined, _ := c.Reserve("fp")

	scanErr := contract.NewError(schema.ScanFailed, "/repo", "boom")
	c.Abort(lease, scanErr)

	_, err := joined.Wait(context.Background())
	assert.ErrorIs(t, err, scanErr)
	_, ok := c.Get("fp")
	assert.False(t, ok)

	next, owner := c.Reserve("fp")
	assert.True(t, owner, "an aborted lease frees the fingerprint")
	assert.NotSame(t, lease, next)
}

func TestCommitStaleLeaseConflicts(t *testing.T) {
	c := New(10, time.Hour)
	lease, _ := c.Reserve("fp")
	c.Abort(lease, errors.New("cancelled"))

	err := c.Commit(lease, analysis("r1"))
	assert.True(t, contract.IsKind(err, schema.CacheReservationConflict))
	assert.Equal(t, 0, c.Len())
}

func TestWaitHonorsContext(t *testing.T) {
	c := New(10, time.Hour)
	lease, _ := c.Reserve("fp")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lease.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCapacityEviction(t *testing.T) {
	c := New(2, time.Hour)
	for _, fp := range []string{"a", "b", "c"} {
		lease, _ := c.Reserve(fp)
		require.NoError(t, c.Commit(lease, analysis(fp)))
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.EqualValues(t, 1, c.GetStatus().Evictions)
}

func TestTTLExpiry(t *testing.T) {
	c := New(0, 20*time.Millisecond)
	lease, _ := c.Reserve("fp")
	require.NoError(t, c.Commit(lease, analysis("r1")))

	assert.Eventually(t, func() bool {
		_, ok := c.Get("fp")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestSeedKeepsRemainingLifetime(t *testing.T) {
	c := New(0, time.Hour)
	assert.False(t, c.Seed("stale", analysis("r1"), 0), "nothing left of the ttl")
	assert.False(t, c.Seed("stale", analysis("r1"), -time.Second))

	require.True(t, c.Seed("fp", analysis("r1"), 30*time.Millisecond))
	_, ok := c.Get("fp")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("fp")
	assert.False(t, ok, "a seeded entry expires with its original commit, not a fresh ttl")
	lease, owner := c.Reserve("fp")
	assert.True(t, owner)
	assert.Equal(t, "fp", lease.Fingerprint())
}

func TestSeedAndInvalidateRepo(t *testing.T) {
	c := New(0, 0)
	assert.True(t, c.Seed("fp1", analysis("r1"), 0))
	assert.True(t, c.Seed("fp2", analysis("r1"), 0))
	assert.True(t, c.Seed("fp3", analysis("r2"), 0))

	_, _ = c.Reserve("busy")
	assert.False(t, c.Seed("busy", analysis("r3"), 0), "seeding never replaces a reservation")

	assert.Equal(t, 2, c.InvalidateRepo("r1"))
	assert.Equal(t, 1, c.Len())
	status := c.GetStatus()
	assert.Equal(t, 3, status.WarmStartCount)
	assert.EqualValues(t, 0, status.Evictions, "explicit removal is not eviction")

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
