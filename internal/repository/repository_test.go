package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
)

func TestPriceBookKeepsNewestAndExpires(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)
	b := NewPriceBook(time.Minute)
	b.now = func() time.Time { return now }

	b.Update(&models.PriceTick{Symbol: "AAPL", Price: 101, Timestamp: 1_700_000_090})
	b.Update(&models.PriceTick{Symbol: "AAPL", Price: 99, Timestamp: 1_700_000_080})
	if p, ok := b.LastPrice("AAPL"); !ok || p != 101 {
		t.Fatalf("LastPrice = %v %v, want 101 true", p, ok)
	}

	b.Update(&models.PriceTick{Symbol: "AAPL", Price: 0, Timestamp: 1_700_000_095})
	if p, _ := b.LastPrice("AAPL"); p != 101 {
		t.Fatalf("zero price tick must be ignored, got %v", p)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := b.LastPrice("AAPL"); ok {
		t.Fatalf("quote older than max age should be unavailable")
	}
	if _, ok := b.LastPrice("MSFT"); ok {
		t.Fatalf("unknown symbol should be unavailable")
	}
}

func TestFileModelStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	s := NewFileModelStore(dir)
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty store Load = %q, %v; want nil, nil", got, err)
	}

	blob := []byte(`{"version":1}`)
	if err := s.Save(ctx, blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, append(blob, '\n')); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, append(blob, '\n')) {
		t.Fatalf("Load = %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(10, 4, 3, 120.456)
	if s.WinRate != 75 || s.AveragePnL != 30.11 || s.TotalPnL != 120.46 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if z := Summarize(2, 0, 0, 0); z.WinRate != 0 || z.AveragePnL != 0 {
		t.Fatalf("no resolved trades should give zero rates, got %+v", z)
	}
}

func TestSchemaTargetsDatabase(t *testing.T) {
	for i, stmt := range Schema("autotrade_test") {
		if !strings.Contains(stmt, "autotrade_test") {
			t.Fatalf("statement %d does not reference the database: %s", i, stmt)
		}
	}
}
