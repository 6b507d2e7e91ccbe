package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("AAPL") || !l.Allow("AAPL") {
		t.Fatalf("burst of capacity should pass")
	}
	if l.Allow("AAPL") {
		t.Fatalf("third event within the same instant should be throttled")
	}
	if !l.Allow("MSFT") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(time.Second)
	if !l.Allow("AAPL") {
		t.Fatalf("one token should refill after a second")
	}
	if l.Allow("AAPL") {
		t.Fatalf("only one token should have refilled")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 5; i++ {
		if !l.Allow("x") {
			t.Fatalf("zero rate disables limiting")
		}
	}
}

func TestLimiterFractionalRefill(t *testing.T) {
	now := time.Unix(100, 0)
	l := New(1, 0.5)
	l.now = func() time.Time { return now }

	if !l.Allow("AAPL") || l.Allow("AAPL") {
		t.Fatalf("burst of one should pass exactly once")
	}
	now = now.Add(time.Second)
	if l.Allow("AAPL") {
		t.Fatalf("half a token after one second must not pass")
	}
	now = now.Add(time.Second)
	if !l.Allow("AAPL") {
		t.Fatalf("a full token after two seconds should pass")
	}
}
