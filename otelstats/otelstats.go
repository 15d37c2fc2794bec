// Package otelstats exports per-method cache counters as OpenTelemetry
// observable counters.
package otelstats

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/methodcache"
)

const scope = "github.com/unkn0wn-root/methodcache"

type instruments struct {
	sets, gets, hits, stales, generates, errors metric.Int64ObservableCounter
}

// Register observes every cached method of m on each collection. Methods
// added after Register are picked up automatically. Call Unregister on the
// returned registration to stop observing.
// A nil meter uses the global MeterProvider.
func Register(meter metric.Meter, m *methodcache.Methods) (metric.Registration, error) {
	if meter == nil {
		meter = otel.Meter(scope)
	}

	var (
		in  instruments
		err error
	)
	counter := func(dst *metric.Int64ObservableCounter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64ObservableCounter(name, metric.WithDescription(desc))
	}
	counter(&in.sets, "methodcache.sets", "Entries written to the backend")
	counter(&in.gets, "methodcache.gets", "Cache lookups")
	counter(&in.hits, "methodcache.hits", "Lookups served from cache")
	counter(&in.stales, "methodcache.stales", "Hits past the stale threshold")
	counter(&in.generates, "methodcache.generates", "Generation runs")
	counter(&in.errors, "methodcache.errors", "Read, generate and timeout failures")
	if err != nil {
		return nil, fmt.Errorf("otelstats: create counter: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		m.Each(func(mt *methodcache.Method) {
			c := mt.Cache()
			if c == nil {
				return
			}
			s := c.Stats()
			attrs := metric.WithAttributes(
				attribute.String("method", mt.Name()),
				attribute.String("cache", c.CacheName()),
			)
			o.ObserveInt64(in.sets, int64(s.Sets), attrs)
			o.ObserveInt64(in.gets, int64(s.Gets), attrs)
			o.ObserveInt64(in.hits, int64(s.Hits), attrs)
			o.ObserveInt64(in.stales, int64(s.Stales), attrs)
			o.ObserveInt64(in.generates, int64(s.Generates), attrs)
			o.ObserveInt64(in.errors, int64(s.Errors), attrs)
		})
		return nil
	}, in.sets, in.gets, in.hits, in.stales, in.generates, in.errors)
	if err != nil {
		return nil, fmt.Errorf("otelstats: register callback: %w", err)
	}
	return reg, nil
}
