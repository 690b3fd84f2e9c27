package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pario-ai/sous/pkg/models"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, kv ...attribute.KeyValue) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] for %s, got %T", name, found.Data)
	}
	want := attribute.NewSet(kv...)
	var total int64
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestCacheLookupOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CacheLookup(ctx, models.FeatureDescription, LookupHit)
	m.CacheLookup(ctx, models.FeatureDescription, LookupMiss)
	m.CacheLookup(ctx, models.FeatureDescription, LookupError)
	m.CacheLookup(ctx, models.FeatureDescription, LookupError)

	rm := collect(t, reader)
	feature := attribute.String("feature", "description")
	if got := sumFor(t, rm, "sous.cache.lookups", feature, attribute.String("outcome", "error")); got != 2 {
		t.Errorf("expected 2 error lookups, got %d", got)
	}
	if got := sumFor(t, rm, "sous.cache.lookups", feature, attribute.String("outcome", "hit")); got != 1 {
		t.Errorf("expected 1 hit, got %d", got)
	}
}

func TestFallbackAndAICall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Fallback(ctx, models.FeatureSentiment, "provider_error")
	m.AICall(ctx, models.FeatureSentiment, models.OutcomeProviderError, 25*time.Millisecond)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "sous.fallbacks",
		attribute.String("feature", "sentiment"), attribute.String("reason", "provider_error")); got != 1 {
		t.Errorf("expected 1 fallback, got %d", got)
	}
	if findMetric(rm, "sous.ai.duration_ms") == nil {
		t.Error("expected duration histogram")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.CacheLookup(ctx, models.FeatureDescription, LookupHit)
	m.CacheWriteError(ctx, models.FeatureDescription)
	m.Fallback(ctx, models.FeatureDescription, "x")
	m.AICall(ctx, models.FeatureDescription, models.OutcomeOK, time.Second)
	m.SlotWait(ctx, time.Second)
}
