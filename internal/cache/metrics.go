package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used for cache metrics.
const MeterName = "hpipulse/cache"

type metrics struct {
	attrs        metric.MeasurementOption
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	computations metric.Int64Counter
	evictions    metric.Int64Counter
}

func newMetrics(meter metric.Meter, name string) (*metrics, error) {
	m := &metrics{attrs: metric.WithAttributes(attribute.String("cache", name))}

	var err error
	m.hits, err = meter.Int64Counter(
		"hpi_cache_hits_total",
		metric.WithDescription("Number of lookups answered from the cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	m.misses, err = meter.Int64Counter(
		"hpi_cache_misses_total",
		metric.WithDescription("Number of lookups that found no stored value"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	m.computations, err = meter.Int64Counter(
		"hpi_cache_computations_total",
		metric.WithDescription("Number of values computed for the cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache computations counter: %w", err)
	}

	m.evictions, err = meter.Int64Counter(
		"hpi_cache_evictions_total",
		metric.WithDescription("Number of values evicted to respect the size bound"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache evictions counter: %w", err)
	}

	return m, nil
}

// The methods below tolerate a nil receiver so an unmetered cache can call
// them unconditionally.

func (m *metrics) hit(ctx context.Context) {
	if m != nil {
		m.hits.Add(ctx, 1, m.attrs)
	}
}

func (m *metrics) miss(ctx context.Context) {
	if m != nil {
		m.misses.Add(ctx, 1, m.attrs)
	}
}

func (m *metrics) compute(ctx context.Context) {
	if m != nil {
		m.computations.Add(ctx, 1, m.attrs)
	}
}

func (m *metrics) evict(ctx context.Context) {
	if m != nil {
		m.evictions.Add(ctx, 1, m.attrs)
	}
}
