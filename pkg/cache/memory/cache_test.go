package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pario-ai/sous/pkg/models"
)

func newTestCache(t *testing.T, maxTTL time.Duration) *Cache {
	t.Helper()
	c, err := New(1<<20, maxTTL)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Put(ctx, models.FeatureDescription, "pasta", []byte("v1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, ok, err := c.Get(ctx, models.FeatureDescription, "pasta")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(val) != "v1" {
		t.Fatalf("expected v1, got %q ok=%v", val, ok)
	}

	if _, ok, _ := c.Get(ctx, models.FeatureRecommendation, "pasta"); ok {
		t.Error("expected miss for other feature")
	}
}

func TestOverwriteAndDelete(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	_ = c.Put(ctx, models.FeatureDescription, "k", []byte("v1"), time.Minute)
	_ = c.Put(ctx, models.FeatureDescription, "k", []byte("v2"), time.Minute)
	if val, _, _ := c.Get(ctx, models.FeatureDescription, "k"); string(val) != "v2" {
		t.Fatalf("expected v2 after overwrite, got %q", val)
	}

	c.Delete(models.FeatureDescription, "k")
	if _, ok, _ := c.Get(ctx, models.FeatureDescription, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMaxTTLClamp(t *testing.T) {
	c := newTestCache(t, 20*time.Millisecond)
	ctx := context.Background()

	_ = c.Put(ctx, models.FeatureDescription, "k", []byte("v"), time.Hour)
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, models.FeatureDescription, "k"); ok {
		t.Error("entry should expire at the clamped TTL")
	}
}
