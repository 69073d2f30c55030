package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Operation outcomes recorded as the cache.status attribute.
const (
	statusHit     = "hit"
	statusMiss    = "miss"
	statusSuccess = "success"
	statusError   = "error"
)

var (
	metricsOnce     sync.Once
	cacheOperations metric.Int64Counter
	cacheDuration   metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/todoapuestas/tap-bridge/internal/cache")

		var err error
		cacheOperations, err = meter.Int64Counter(
			"cache.operations",
			metric.WithDescription("Cache operations by namespace and outcome"),
		)
		if err != nil {
			otel.Handle(err)
		}

		cacheDuration, err = meter.Float64Histogram(
			"cache.operation.duration",
			metric.WithDescription("Cache operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

// Instrumented records metrics and span attributes for every operation of
// the wrapped Store, labelled with the backend type and the namespace of the
// resource class.
type Instrumented[T any] struct {
	wrapped   Store[T]
	cacheType string
	namespace string
	labels    []attribute.KeyValue
}

func NewInstrumented[T any](cache Store[T], cacheType, namespace string) *Instrumented[T] {
	initMetrics()
	return &Instrumented[T]{
		wrapped:   cache,
		cacheType: cacheType,
		namespace: namespace,
		labels: []attribute.KeyValue{
			attribute.String("cache.type", cacheType),
			attribute.String("cache.namespace", namespace),
		},
	}
}

func (i *Instrumented[T]) Get(ctx context.Context, key string) (T, bool, error) {
	start := time.Now()
	value, found, err := i.wrapped.Get(ctx, key)

	status := statusMiss
	if found {
		status = statusHit
	}
	i.record(ctx, "get", start, status, err)

	return value, found, err
}

func (i *Instrumented[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	start := time.Now()
	err := i.wrapped.Set(ctx, key, value, ttl)

	trace.SpanFromContext(ctx).SetAttributes(attribute.Float64("cache.set.ttl", ttl.Seconds()))
	i.record(ctx, "set", start, statusSuccess, err)

	return err
}

func (i *Instrumented[T]) Invalidate(ctx context.Context, key string) error {
	start := time.Now()
	err := i.wrapped.Invalidate(ctx, key)

	i.record(ctx, "invalidate", start, statusSuccess, err)

	return err
}

func (i *Instrumented[T]) Close() error {
	return i.wrapped.Close()
}

// record publishes a finished operation. An error overrides the status.
func (i *Instrumented[T]) record(ctx context.Context, operation string, start time.Time, status string, err error) {
	duration := time.Since(start)
	if err != nil {
		status = statusError
	}

	op := attribute.String("cache.operation", operation)

	if cacheDuration != nil {
		cacheDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(append(i.labels, op)...))
	}

	if cacheOperations != nil {
		cacheOperations.Add(ctx, 1, metric.WithAttributes(
			append(i.labels, op, attribute.String("cache.status", status))...,
		))
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(i.labels...)
	span.SetAttributes(
		attribute.String("cache."+operation+".status", status),
		attribute.Float64("cache."+operation+".duration", duration.Seconds()),
	)
}
