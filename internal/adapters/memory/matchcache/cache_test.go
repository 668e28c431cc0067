package matchcache

import (
	"context"
	"testing"
	"time"

	"github.com/fast-shipment/matching-api/internal/ports/out/matchcache"
)

func TestCache_PutGetInvalidate(t *testing.T) {
	t.Parallel()
	c := NewCache()
	ctx := context.Background()
	key := matchcache.OfferKey("o-1")

	ss := []matchcache.CachedSuggestion{{OfferID: "o-1", ShipmentID: "s-1", Score: 88}}
	if err := c.Put(ctx, key, ss, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Score != 88 {
		t.Fatalf("got %+v", got)
	}

	// The cache hands out copies.
	got[0].Score = 1
	again, _, _ := c.Get(ctx, key)
	if again[0].Score != 88 {
		t.Fatalf("stored entry mutated through returned slice")
	}

	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("entry survived invalidation")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	t.Parallel()
	c := NewCache()
	ctx := context.Background()
	key := matchcache.ShipmentKey("s-1")

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c.SetNowForTest(func() time.Time { return now })

	if err := c.Put(ctx, key, []matchcache.CachedSuggestion{{Score: 50}}, 5*time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); !ok {
		t.Fatal("fresh entry missing")
	}

	now = now.Add(5*time.Minute + time.Second)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("expired entry still served")
	}
}
