package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T, opts ...Option) *Cache[string] {
	t.Helper()
	c, err := New[string](opts...)
	require.NoError(t, err)
	return c
}

func TestGetOrComputeMemoizes(t *testing.T) {
	c := newTestCache(t)
	var calls int
	compute := func(context.Context) (string, error) {
		calls++
		return "merged", nil
	}

	v, hit, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "merged", v)

	v, hit, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "merged", v)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Computations)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.5, stats.HitRatio(), 1e-9)
}

func TestGetOrComputeConcurrentFirstAccessComputesOnce(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "merged", nil
	}

	const callers = 16
	var started sync.WaitGroup
	started.Add(callers)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			started.Done()
			v, _, err := c.GetOrCompute(ctx, "k", compute)
			if err != nil {
				return err
			}
			if v != "merged" {
				return errors.New("unexpected value " + v)
			}
			return nil
		})
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), c.Stats().Computations)
}

func TestGetOrComputeDoesNotStoreFailures(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Entries)

	v, hit, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", v)
}

func TestGetOrComputeCallerCancelled(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetOrCompute(ctx, "k", func(ctx context.Context) (string, error) {
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestInvalidateAndPurge(t *testing.T) {
	c := newTestCache(t)
	value := func(s string) ComputeFunc[string] {
		return func(context.Context) (string, error) { return s, nil }
	}

	_, _, err := c.GetOrCompute(context.Background(), "a", value("1"))
	require.NoError(t, err)
	_, _, err = c.GetOrCompute(context.Background(), "b", value("2"))
	require.NoError(t, err)

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestEvictsOldestEntry(t *testing.T) {
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c := newTestCache(t, WithMaxEntries(2))
	c.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, k := range []SourceSetKey{"first", "second", "third"} {
		_, _, err := c.GetOrCompute(context.Background(), k, func(context.Context) (string, error) {
			return string(k), nil
		})
		require.NoError(t, err)
	}

	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestNewRejectsNonPositiveBound(t *testing.T) {
	_, err := New[int](WithMaxEntries(0))
	assert.Error(t, err)
}

func TestMetricsExported(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	c := newTestCache(t, WithName("dataset"), WithMeter(provider.Meter(MeterName)))
	compute := func(context.Context) (string, error) { return "v", nil }
	for i := 0; i < 3; i++ {
		_, _, err := c.GetOrCompute(context.Background(), "k", compute)
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				got[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), got["hpi_cache_hits_total"])
	assert.Equal(t, int64(1), got["hpi_cache_misses_total"])
	assert.Equal(t, int64(1), got["hpi_cache_computations_total"])
}
