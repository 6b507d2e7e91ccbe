package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type snapshotLike struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func TestMemoryCacheTypedRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }), WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	in := snapshotLike{Symbol: "AAPL", Closes: []float64{1, 2, 3}}
	if err := mc.Set(ctx, "snap:AAPL", in, 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := GetTyped[snapshotLike](ctx, mc, "snap:AAPL")
	if err != nil || !ok {
		t.Fatalf("GetTyped: ok=%v err=%v", ok, err)
	}
	if got.Symbol != "AAPL" || len(got.Closes) != 3 {
		t.Fatalf("unexpected value %+v", got)
	}

	now = now.Add(5*time.Minute + time.Second)
	var out snapshotLike
	if err := mc.Get(ctx, "snap:AAPL", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(func() time.Time { return now }), WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", 0)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	now = now.Add(time.Second)
	var s string
	_ = mc.Get(ctx, "a", &s)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to remain")
	}
}

func TestLayeredCacheFillsL1FromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache(WithMemoryCleanup(0))
	defer l2.Close()
	lc := NewLayeredCache(l2, time.Minute, WithMemoryCleanup(0))
	defer lc.Close()

	_ = l2.Set(ctx, "k", snapshotLike{Symbol: "MSFT"}, 0)

	var out snapshotLike
	if err := lc.Get(ctx, "k", &out); err != nil || out.Symbol != "MSFT" {
		t.Fatalf("Get via L2: %+v %v", out, err)
	}
	_ = l2.Delete(ctx, "k")
	out = snapshotLike{}
	if err := lc.Get(ctx, "k", &out); err != nil || out.Symbol != "MSFT" {
		t.Fatalf("expected L1 hit after L2 delete: %+v %v", out, err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("snapshot", "AAPL", 5); got != "snapshot:AAPL:5" {
		t.Fatalf("Key = %q", got)
	}
}
