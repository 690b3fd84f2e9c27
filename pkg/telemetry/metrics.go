// Package telemetry records orchestration metrics with OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pario-ai/sous/pkg/models"
)

// Cache lookup outcomes.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Metrics holds the instruments used across the pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups     metric.Int64Counter
	cacheWriteErrors metric.Int64Counter
	fallbacks        metric.Int64Counter
	aiCalls          metric.Int64Counter
	aiDuration       metric.Float64Histogram
	slotWait         metric.Float64Histogram
}

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.cacheLookups, err = meter.Int64Counter(
		"sous.cache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if m.cacheWriteErrors, err = meter.Int64Counter(
		"sous.cache.write_errors",
		metric.WithDescription("Cache writes that failed and were dropped"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter(
		"sous.fallbacks",
		metric.WithDescription("Responses served by a fallback heuristic"),
		metric.WithUnit("{response}"),
	); err != nil {
		return nil, err
	}
	if m.aiCalls, err = meter.Int64Counter(
		"sous.ai.calls",
		metric.WithDescription("Outbound model calls by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.aiDuration, err = meter.Float64Histogram(
		"sous.ai.duration_ms",
		metric.WithDescription("Outbound model call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.slotWait, err = meter.Float64Histogram(
		"sous.ratelimit.wait_ms",
		metric.WithDescription("Time spent queued for an outbound call slot"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewGlobal creates the instruments on the global meter provider.
func NewGlobal() (*Metrics, error) {
	return New(otel.Meter("github.com/pario-ai/sous"))
}

func featureAttr(f models.Feature) attribute.KeyValue {
	return attribute.String("feature", string(f))
}

// CacheLookup records a cache read and its outcome.
func (m *Metrics) CacheLookup(ctx context.Context, f models.Feature, outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(featureAttr(f), attribute.String("outcome", outcome)))
}

// CacheWriteError records a dropped cache write.
func (m *Metrics) CacheWriteError(ctx context.Context, f models.Feature) {
	if m == nil {
		return
	}
	m.cacheWriteErrors.Add(ctx, 1, metric.WithAttributes(featureAttr(f)))
}

// Fallback records a degraded response.
func (m *Metrics) Fallback(ctx context.Context, f models.Feature, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(featureAttr(f), attribute.String("reason", reason)))
}

// AICall records an outbound model call.
func (m *Metrics) AICall(ctx context.Context, f models.Feature, outcome models.CallOutcome, d time.Duration) {
	if m == nil {
		return
	}
	m.aiCalls.Add(ctx, 1, metric.WithAttributes(featureAttr(f), attribute.String("outcome", string(outcome))))
	m.aiDuration.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(featureAttr(f)))
}

// SlotWait records how long a caller queued at the rate limiter.
func (m *Metrics) SlotWait(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.slotWait.Record(ctx, float64(d.Microseconds())/1000)
}
