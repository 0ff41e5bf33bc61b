package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldprice-api/internal/breaker"
	"goldprice-api/internal/cache"
	"goldprice-api/internal/models"
	"goldprice-api/internal/providers"
	"goldprice-api/internal/usagelog"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []usagelog.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry usagelog.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

type fakeProvider struct {
	name   string
	source models.Source
	calls  atomic.Int64

	mu   sync.Mutex
	snap *models.Snapshot
	err  error
}

func (f *fakeProvider) Name() string          { return f.name }
func (f *fakeProvider) Source() models.Source { return f.source }

func (f *fakeProvider) Fetch(_ context.Context) (*models.Snapshot, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeProvider) set(snap *models.Snapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSnapshot(source models.Source, at time.Time) *models.Snapshot {
	return models.NewSnapshot(map[models.Code]models.Quote{
		models.CodeKulceAltin: {Buy: 4315.50, Sell: 4318.20},
		models.CodeUSDTRY:     {Buy: 41.10, Sell: 41.25},
	}, source, at)
}

func netErr(provider string) error {
	return providers.NewFetchError(provider, providers.ErrCodeNetwork, "connection refused", nil)
}

func newTestAggregator(primary, secondary providers.Client, clock *fakeClock) *Aggregator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	policy := cache.FixedPolicy{Primary: 15 * time.Second, Secondary: 30 * time.Second}
	return New(primary, secondary, policy, logger, WithClock(clock.Now))
}

func TestGetPrices(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("fresh cache serves without touching upstreams", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		first, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.False(t, first.Cached)
		assert.Equal(t, models.SourceFree, first.Source)

		clock.Advance(5 * time.Second)
		second, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.False(t, second.Stale)
		assert.Equal(t, int64(1), primary.calls.Load())
		assert.Equal(t, int64(0), secondary.calls.Load())
	})

	t.Run("expired cache triggers refresh", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		_, err := agg.GetPrices(ctx)
		require.NoError(t, err)

		clock.Advance(16 * time.Second)
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		res, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, int64(2), primary.calls.Load())
	})

	t.Run("primary failure falls back to secondary", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(nil, netErr("primary"))
		secondary.set(testSnapshot(models.SourcePaid, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		res, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SourcePaid, res.Source)
		assert.Equal(t, int64(1), primary.calls.Load())
		assert.Equal(t, int64(1), secondary.calls.Load())
	})

	t.Run("breaker skips primary after three failures", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(nil, netErr("primary"))
		secondary.set(nil, netErr("secondary"))
		agg := newTestAggregator(primary, secondary, clock)

		for i := 0; i < 3; i++ {
			_, err := agg.GetPrices(ctx)
			assert.ErrorIs(t, err, ErrNoData)
			clock.Advance(time.Second)
		}
		require.Equal(t, int64(3), primary.calls.Load())

		// Fourth request must skip the primary entirely.
		_, err := agg.GetPrices(ctx)
		assert.ErrorIs(t, err, ErrNoData)
		assert.Equal(t, int64(3), primary.calls.Load())
		assert.Equal(t, int64(4), secondary.calls.Load())
	})

	t.Run("primary retried after cooldown", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(nil, netErr("primary"))
		secondary.set(nil, netErr("secondary"))
		agg := newTestAggregator(primary, secondary, clock)

		for i := 0; i < 3; i++ {
			_, _ = agg.GetPrices(ctx)
		}
		require.Equal(t, int64(3), primary.calls.Load())

		clock.Advance(61 * time.Second)
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		res, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SourceFree, res.Source)
		assert.Equal(t, int64(4), primary.calls.Load())
	})

	t.Run("stale cache served when both upstreams fail", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		_, err := agg.GetPrices(ctx)
		require.NoError(t, err)

		clock.Advance(time.Hour)
		primary.set(nil, netErr("primary"))
		secondary.set(nil, netErr("secondary"))

		res, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.True(t, res.Stale)
		assert.Equal(t, models.SourceFree, res.Source)
	})

	t.Run("no data at all returns ErrNoData", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(nil, netErr("primary"))
		secondary.set(nil, netErr("secondary"))
		agg := newTestAggregator(primary, secondary, clock)

		res, err := agg.GetPrices(ctx)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("concurrent misses coalesce into one fetch", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		const workers = 20
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				res, err := agg.GetPrices(ctx)
				assert.NoError(t, err)
				assert.NotNil(t, res)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), primary.calls.Load())
		assert.Equal(t, int64(0), secondary.calls.Load())
	})
}

func TestUsageAttribution(t *testing.T) {
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: base}
	primary := &fakeProvider{name: "primary", source: models.SourceFree}
	secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
	primary.set(nil, netErr("primary"))
	secondary.set(testSnapshot(models.SourcePaid, clock.Now()), nil)

	usage := &captureRecorder{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	policy := cache.FixedPolicy{Primary: 15 * time.Second, Secondary: 30 * time.Second}
	agg := New(primary, secondary, policy, logger,
		WithClock(clock.Now), WithUsageRecorder(usage))

	ctx := usagelog.WithAttribution(context.Background(), usagelog.Attribution{
		UserID:   "user-1",
		Username: "alice",
		Role:     "admin",
		Endpoint: "/api/v1/prices",
	})

	_, err := agg.GetPrices(ctx)
	require.NoError(t, err)

	// One entry per upstream attempt, both stamped with the caller.
	require.Len(t, usage.entries, 2)
	for _, entry := range usage.entries {
		assert.Equal(t, "user-1", entry.UserID)
		assert.Equal(t, "alice", entry.Username)
		assert.Equal(t, "/api/v1/prices", entry.Endpoint)
	}
	assert.False(t, usage.entries[0].Success)
	assert.Equal(t, models.SourceFree, usage.entries[0].Source)
	assert.True(t, usage.entries[1].Success)
	assert.Equal(t, models.SourcePaid, usage.entries[1].Source)
}

func TestForceRefresh(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("always calls secondary, never primary", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		secondary.set(testSnapshot(models.SourcePaid, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		// Seed a perfectly fresh cache from the primary.
		_, err := agg.GetPrices(ctx)
		require.NoError(t, err)

		res, err := agg.ForceRefresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SourcePaid, res.Source)
		assert.False(t, res.Cached)
		assert.Equal(t, int64(1), primary.calls.Load())
		assert.Equal(t, int64(1), secondary.calls.Load())
	})

	t.Run("secondary failure falls back to stale cache", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(testSnapshot(models.SourceFree, clock.Now()), nil)
		secondary.set(nil, netErr("secondary"))
		agg := newTestAggregator(primary, secondary, clock)

		_, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		clock.Advance(time.Minute)

		res, err := agg.ForceRefresh(ctx)
		require.NoError(t, err)
		assert.True(t, res.Stale)
		assert.Equal(t, models.SourceFree, res.Source)
	})

	t.Run("refreshed snapshot replaces the cache", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		secondary.set(testSnapshot(models.SourcePaid, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		_, err := agg.ForceRefresh(ctx)
		require.NoError(t, err)

		res, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, models.SourcePaid, res.Source)
		assert.Equal(t, int64(0), primary.calls.Load())
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("empty aggregator", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		agg := newTestAggregator(primary, secondary, clock)

		status := agg.Status()
		assert.False(t, status.HasData)
		assert.Equal(t, string(breaker.StateClosed), status.BreakerState)
		assert.Zero(t, status.PaidCalls)
	})

	t.Run("after failures and fallback", func(t *testing.T) {
		clock := &fakeClock{now: base}
		primary := &fakeProvider{name: "primary", source: models.SourceFree}
		secondary := &fakeProvider{name: "secondary", source: models.SourcePaid}
		primary.set(nil, netErr("primary"))
		secondary.set(testSnapshot(models.SourcePaid, clock.Now()), nil)
		agg := newTestAggregator(primary, secondary, clock)

		_, err := agg.GetPrices(ctx)
		require.NoError(t, err)
		clock.Advance(10 * time.Second)

		status := agg.Status()
		assert.True(t, status.HasData)
		assert.Equal(t, models.SourcePaid, status.LastSource)
		assert.InDelta(t, 10, status.CacheAgeSeconds, 0.001)
		assert.Equal(t, 1, status.ConsecutiveFailures)
		assert.Equal(t, int64(1), status.PaidCalls)
	})
}
