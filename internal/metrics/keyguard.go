package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics counts credential cache lookups per tier.
type CacheMetrics interface {
	// RecordCacheLookup counts one lookup. tier is "local" or "distributed",
	// outcome is "hit" or "miss".
	RecordCacheLookup(ctx context.Context, tier, outcome string)
}

type cacheMetrics struct {
	lookups metric.Int64Counter
}

// NewCacheMetrics creates the <namespace>_cache_lookups_total counter.
func NewCacheMetrics(meterProvider metric.MeterProvider, namespace string) (CacheMetrics, error) {
	lookups, err := meterProvider.Meter(namespace).Int64Counter(
		fmt.Sprintf("%s_cache_lookups_total", namespace),
		metric.WithDescription("Credential cache lookups by tier and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookup counter: %w", err)
	}
	return &cacheMetrics{lookups: lookups}, nil
}

func (c *cacheMetrics) RecordCacheLookup(ctx context.Context, tier, outcome string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("outcome", outcome),
	))
}

// AuditQueue is the state of the asynchronous audit writer.
type AuditQueue interface {
	Pending() int
	Dropped() int64
}

// ObserveAuditQueue reports the audit queue depth and the number of dropped
// events on every collection.
func ObserveAuditQueue(meterProvider metric.MeterProvider, namespace string, queue AuditQueue) error {
	meter := meterProvider.Meter(namespace)

	depth, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_audit_queue_depth", namespace),
		metric.WithDescription("Audit events waiting to be persisted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit queue gauge: %w", err)
	}

	dropped, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_audit_events_dropped_total", namespace),
		metric.WithDescription("Audit events discarded because the queue was full or closed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dropped audit events counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(depth, int64(queue.Pending()))
		o.ObserveInt64(dropped, queue.Dropped())
		return nil
	}, depth, dropped)
	if err != nil {
		return fmt.Errorf("failed to register audit queue callback: %w", err)
	}
	return nil
}
