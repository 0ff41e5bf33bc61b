// Package aggregator coordinates the two upstream feeds, the snapshot
// cache and the circuit breaker into a single price source.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"goldprice-api/internal/breaker"
	"goldprice-api/internal/cache"
	"goldprice-api/internal/models"
	"goldprice-api/internal/providers"
	"goldprice-api/internal/usagelog"
)

// ErrNoData is returned when both upstreams fail and no snapshot, fresh
// or stale, has ever been cached.
var ErrNoData = errors.New("no price data available from any source")

// Observer receives cache and breaker events. The monitoring package
// provides the Prometheus implementation.
type Observer interface {
	RecordCacheHit()
	RecordStaleServed()
	RecordBreakerOpening()
}

type nopObserver struct{}

func (nopObserver) RecordCacheHit()       {}
func (nopObserver) RecordStaleServed()    {}
func (nopObserver) RecordBreakerOpening() {}

// Result is one answer to a price request.
type Result struct {
	Data      map[string]float64 `json:"data"`
	Source    models.Source      `json:"source"`
	Cached    bool               `json:"cached"`
	Stale     bool               `json:"stale"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Status describes the aggregator's current health for the status
// endpoint.
type Status struct {
	LastSource          models.Source `json:"last_source,omitempty"`
	CacheAgeSeconds     float64       `json:"cache_age_seconds"`
	HasData             bool          `json:"has_data"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	BreakerState        string        `json:"breaker_state"`
	DisabledUntil       *time.Time    `json:"disabled_until,omitempty"`
	PaidCalls           int64         `json:"paid_calls"`
}

type Aggregator struct {
	primary   providers.Client
	secondary providers.Client
	breaker   *breaker.Breaker
	policy    cache.Policy
	cache     *cache.SnapshotCache
	usage     usagelog.Recorder
	observer  Observer
	logger    *logrus.Logger

	clock func() time.Time

	// refreshMu serializes upstream refreshes so concurrent misses
	// collapse into a single fetch.
	refreshMu sync.Mutex

	paidCalls atomic.Int64
}

type Option func(*Aggregator)

// WithClock overrides the time source. Tests use it to control TTL and
// breaker deadlines.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) { a.clock = clock }
}

func WithObserver(obs Observer) Option {
	return func(a *Aggregator) { a.observer = obs }
}

func WithUsageRecorder(rec usagelog.Recorder) Option {
	return func(a *Aggregator) { a.usage = rec }
}

func WithBreaker(b *breaker.Breaker) Option {
	return func(a *Aggregator) { a.breaker = b }
}

func New(primary, secondary providers.Client, policy cache.Policy, logger *logrus.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Aggregator{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker.New(breaker.DefaultFailureThreshold, breaker.DefaultCooldown),
		policy:    policy,
		cache:     cache.NewSnapshotCache(),
		usage:     usagelog.Nop{},
		observer:  nopObserver{},
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetPrices returns current prices, preferring the fresh cache, then the
// primary upstream gated by the circuit breaker, then the secondary, and
// finally an expired cache entry when both upstreams fail.
func (a *Aggregator) GetPrices(ctx context.Context) (*Result, error) {
	now := a.clock()
	if snap, fresh := a.cache.Fresh(now, a.policy); fresh {
		a.observer.RecordCacheHit()
		return cachedResult(snap), nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	now = a.clock()
	if snap, fresh := a.cache.Fresh(now, a.policy); fresh {
		a.observer.RecordCacheHit()
		return cachedResult(snap), nil
	}

	if snap := a.refresh(ctx, now); snap != nil {
		return &Result{
			Data:      snap.Flatten(),
			Source:    snap.Source,
			FetchedAt: snap.FetchedAt,
		}, nil
	}

	return a.staleFallback()
}

// ForceRefresh fetches from the secondary upstream unconditionally,
// bypassing the cache and never touching the primary. Operators use it
// when the free feed serves corrupt data that still passes validation.
func (a *Aggregator) ForceRefresh(ctx context.Context) (*Result, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	if snap := a.fetchSecondary(ctx); snap != nil {
		return &Result{
			Data:      snap.Flatten(),
			Source:    snap.Source,
			FetchedAt: snap.FetchedAt,
		}, nil
	}

	return a.staleFallback()
}

// Status reports cache and breaker state.
func (a *Aggregator) Status() Status {
	now := a.clock()
	status := Status{
		BreakerState: string(a.breaker.State(now)),
		PaidCalls:    a.paidCalls.Load(),
	}

	bs := a.breaker.Status()
	status.ConsecutiveFailures = bs.ConsecutiveFailures
	status.DisabledUntil = bs.DisabledUntil

	if snap, ok := a.cache.Current(); ok {
		status.HasData = true
		status.LastSource = snap.Source
		status.CacheAgeSeconds = now.Sub(snap.FetchedAt).Seconds()
	}
	return status
}

// refresh attempts primary then secondary, caching whichever succeeds.
// The caller must hold refreshMu.
func (a *Aggregator) refresh(ctx context.Context, now time.Time) *models.Snapshot {
	if a.breaker.Allow(now) {
		if snap := a.fetchPrimary(ctx, now); snap != nil {
			return snap
		}
	} else {
		a.logger.WithField("provider", a.primary.Name()).Debug("circuit open, skipping primary")
	}
	return a.fetchSecondary(ctx)
}

func (a *Aggregator) fetchPrimary(ctx context.Context, now time.Time) *models.Snapshot {
	start := a.clock()
	snap, err := a.primary.Fetch(ctx)
	latency := a.clock().Sub(start)
	a.usage.Record(ctx, usagelog.NewEntry(ctx, a.primary.Source(), latency, err))

	if err != nil {
		before := a.breaker.State(now)
		a.breaker.Failure(now)
		if before == breaker.StateClosed && a.breaker.State(now) == breaker.StateOpen {
			a.observer.RecordBreakerOpening()
		}
		a.logger.WithError(err).WithField("provider", a.primary.Name()).Warn("primary fetch failed")
		return nil
	}

	a.breaker.Success()
	a.cache.Set(snap)
	return snap
}

func (a *Aggregator) fetchSecondary(ctx context.Context) *models.Snapshot {
	a.paidCalls.Add(1)

	start := a.clock()
	snap, err := a.secondary.Fetch(ctx)
	latency := a.clock().Sub(start)
	a.usage.Record(ctx, usagelog.NewEntry(ctx, a.secondary.Source(), latency, err))

	if err != nil {
		a.logger.WithError(err).WithField("provider", a.secondary.Name()).Warn("secondary fetch failed")
		return nil
	}

	a.cache.Set(snap)
	return snap
}

func (a *Aggregator) staleFallback() (*Result, error) {
	snap, ok := a.cache.Current()
	if !ok {
		return nil, ErrNoData
	}

	a.observer.RecordStaleServed()
	a.logger.WithField("age", a.clock().Sub(snap.FetchedAt)).Warn("serving stale prices")

	res := cachedResult(snap)
	res.Stale = true
	return res, nil
}

func cachedResult(snap *models.Snapshot) *Result {
	return &Result{
		Data:      snap.Flatten(),
		Source:    snap.Source,
		Cached:    true,
		FetchedAt: snap.FetchedAt,
	}
}
