package finnhub

import "testing"

func TestParseFrameTrade(t *testing.T) {
	frame := []byte(`{"type":"trade","data":[{"s":"AAPL","p":187.5,"v":10,"t":1700000000123},{"s":"","p":1,"v":1,"t":1},{"s":"MSFT","p":0,"v":1,"t":1}]}`)
	ticks, err := ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("expected 1 valid tick, got %d", len(ticks))
	}
	got := ticks[0]
	if got.Symbol != "AAPL" || got.Price != 187.5 || got.Volume != 10 || got.Timestamp != 1700000000 {
		t.Fatalf("unexpected tick %+v", got)
	}
}

func TestParseFramePingIgnored(t *testing.T) {
	ticks, err := ParseFrame([]byte(`{"type":"ping"}`))
	if err != nil || ticks != nil {
		t.Fatalf("ping should yield nothing, got %v %v", ticks, err)
	}
	if _, err := ParseFrame([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
